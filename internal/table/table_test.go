package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf)
	table.WithHeader([]string{"OFFSET", "OP", "ARGS"})
	table.WithColumnAlignment([]Alignment{AlignLeft, AlignRight, AlignLeft})
	table.WithHeaderAlignment([]Alignment{AlignCenter, AlignCenter, AlignRight})
	table.Append([]string{"0", "CONSTANT", "0 (1)"})
	table.Append([]string{"3", "ADD", ""})
	table.Render()

	expected := `
+--------+----------+-------+
| OFFSET |    OP    |  ARGS |
+--------+----------+-------+
| 0      | CONSTANT | 0 (1) |
| 3      |      ADD |       |
+--------+----------+-------+
`
	require.Equal(t, strings.TrimSpace(expected)+"\n", buf.String())
}

func TestWithRowsAndShortRows(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf).
		WithHeader([]string{"A", "B"}).
		WithRows([][]string{{"x"}, {"yy", "z"}}).
		Render()
	expected := `
+----+---+
| A  | B |
+----+---+
| x  |   |
| yy | z |
+----+---+
`
	require.Equal(t, strings.TrimSpace(expected)+"\n", buf.String())
}

func TestEmptyTableRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf).Render()
	require.Empty(t, buf.String())
}

func TestColoredTable(t *testing.T) {
	saved := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = saved }()

	var buf bytes.Buffer
	table := NewTable(&buf)
	table.WithHeader([]string{"NAME", "ARITY", "KIND"})
	table.WithColumnAlignment([]Alignment{AlignLeft, AlignRight, AlignLeft})
	table.WithHeaderAlignment([]Alignment{AlignCenter, AlignCenter, AlignCenter})
	table.Append([]string{
		color.New(color.Bold).Sprint("sorted"),
		"1-2",
		color.GreenString("builtin"),
	})
	table.Append([]string{
		"print",
		color.New(color.Bold).Sprint("1"),
		color.GreenString("builtin"),
	})
	table.Render()

	result := buf.String()
	require.Contains(t, result, "\x1b[")
	lines := strings.Split(strings.TrimSuffix(result, "\n"), "\n")
	require.Len(t, lines, 6)
	for i, line := range lines {
		require.Equal(t, len(lines[0]), len(stripAnsi(line)), "line %d", i)
	}
}
