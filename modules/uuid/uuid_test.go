package uuid

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

var withUUID = scripttest.Module("uuid", Module)

func TestGenerate(t *testing.T) {
	got := scripttest.Eval(t, `import uuid
var a = uuid.uuid4()
[uuid.version(a), uuid.version(uuid.uuid1()), a != uuid.uuid4(), len(a)]`, withUUID)
	require.Equal(t, []any{4.0, 1.0, true, 36.0}, got)
}

func TestNameBased(t *testing.T) {
	want := uuid.NewV5(uuid.NamespaceDNS, "example.com").String()
	got := scripttest.Eval(t, `import uuid
[uuid.uuid5("dns", "example.com"), uuid.uuid5("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "example.com")]`, withUUID)
	require.Equal(t, []any{want, want}, got)
}

func TestParse(t *testing.T) {
	got := scripttest.Eval(t, `import uuid
uuid.parse("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")`, withUUID)
	require.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", got)

	err := scripttest.Error(t, "import uuid\nuuid.parse('nope')", withUUID)
	require.Contains(t, err.Error(), "uuid.parse")
	err = scripttest.Error(t, "import uuid\nuuid.uuid5('bogus', 'x')", withUUID)
	require.Contains(t, err.Error(), "invalid namespace")
}

func TestNil(t *testing.T) {
	require.Equal(t, "00000000-0000-0000-0000-000000000000", scripttest.Eval(t, "import uuid\nuuid.NIL", withUUID))
}
