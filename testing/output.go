package testing

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Output prints results in the style of go test. Colors follow
// color.NoColor.
type Output struct {
	w       io.Writer
	verbose bool
	pass    func(a ...any) string
	fail    func(a ...any) string
	skip    func(a ...any) string
}

// NewOutput returns an Output writing to w. When verbose is set, logs are
// printed for every test rather than only for failed ones.
func NewOutput(w io.Writer, verbose bool) *Output {
	return &Output{
		w:       w,
		verbose: verbose,
		pass:    color.New(color.FgGreen).SprintFunc(),
		fail:    color.New(color.FgRed).SprintFunc(),
		skip:    color.New(color.FgYellow).SprintFunc(),
	}
}

// PrintResults prints load errors, then each test, then the summary.
func (o *Output) PrintResults(summary *Summary) {
	for _, file := range summary.Files {
		if file.LoadErr != nil {
			fmt.Fprintf(o.w, "%s %s\n    %s\n", o.fail("LOAD ERROR:"), file.Filename, file.LoadErr)
		}
	}
	for _, file := range summary.Files {
		for _, test := range file.Tests {
			fmt.Fprintf(o.w, "=== RUN   %s\n", test.Name)
			o.EndTest(test)
		}
	}
	o.Summary(summary)
}

// EndTest prints the result line of a test and its details.
func (o *Output) EndTest(result *TestResult) {
	var status string
	switch result.Status {
	case StatusPassed:
		status = o.pass("--- PASS:")
	case StatusSkipped:
		status = o.skip("--- SKIP:")
	default:
		status = o.fail(fmt.Sprintf("--- %s:", result.Status))
	}
	fmt.Fprintf(o.w, "%s %s (%.3fs)\n", status, result.Name, result.Duration.Seconds())

	if result.Status == StatusSkipped && result.SkipReason != "" {
		fmt.Fprintf(o.w, "    %s\n", result.SkipReason)
	}
	if result.Error != nil {
		fmt.Fprintf(o.w, "    %s\n", result.Error)
	}
	for _, f := range result.Failures {
		o.printFailure(f)
	}
	if o.verbose || result.Status == StatusFailed {
		for _, line := range result.Logs {
			fmt.Fprintf(o.w, "    %s\n", line)
		}
	}
}

func (o *Output) printFailure(f AssertionError) {
	loc := ""
	if f.File != "" {
		loc = f.File + ": "
	}
	fmt.Fprintf(o.w, "    %s%s\n", loc, f.Message)
	if f.Got != "" {
		fmt.Fprintf(o.w, "        %s:  %s\n", o.fail("got"), f.Got)
	}
	if f.Want != "" {
		fmt.Fprintf(o.w, "        %s: %s\n", o.pass("want"), f.Want)
	}
}

// Summary prints the overall status and the counts.
func (o *Output) Summary(summary *Summary) {
	fmt.Fprintln(o.w)
	if summary.Success() {
		fmt.Fprintln(o.w, o.pass("PASS"))
	} else {
		fmt.Fprintln(o.w, o.fail("FAIL"))
	}
	var parts []string
	if summary.Passed > 0 {
		parts = append(parts, o.pass(fmt.Sprintf("%d passed", summary.Passed)))
	}
	if summary.Failed > 0 {
		parts = append(parts, o.fail(fmt.Sprintf("%d failed", summary.Failed)))
	}
	if summary.Skipped > 0 {
		parts = append(parts, o.skip(fmt.Sprintf("%d skipped", summary.Skipped)))
	}
	if summary.Errors > 0 {
		parts = append(parts, o.fail(fmt.Sprintf("%d errors", summary.Errors)))
	}
	if len(parts) > 0 {
		fmt.Fprintf(o.w, "%s (%.3fs)\n", strings.Join(parts, ", "), summary.Duration.Seconds())
	}
}
