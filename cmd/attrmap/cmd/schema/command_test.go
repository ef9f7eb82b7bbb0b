package schema_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap"
	schemacmd "github.com/agentstation/attrmap/cmd/attrmap/cmd/schema"
	"github.com/agentstation/attrmap/internal/appcontext"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/schema"
)

func fetch(t *testing.T, mock *appcontext.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := schemacmd.NewCommand(mock)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"fetch"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func colorMock(format string) *appcontext.Mock {
	s := schema.New(
		schema.Attribute{ID: "COLOR", Name: "Color", ValueType: schema.List, Values: map[string]string{"red": "123"}},
		schema.Attribute{ID: "BRAND", Name: "Brand", ValueType: schema.String, Required: true},
	)
	return &appcontext.Mock{
		Format:  format,
		Options: []attrmap.Option{attrmap.WithSchemaProvider(schema.NewStatic(s))},
	}
}

func TestFetchRoundTrips(t *testing.T) {
	out, err := fetch(t, colorMock("json"), "CBT1157")
	require.NoError(t, err)

	s, err := schema.Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"COLOR", "BRAND"}, s.IDs())
	color, ok := s.Get("COLOR")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"red": "123"}, color.Values)
}

func TestFetchTable(t *testing.T) {
	out, err := fetch(t, colorMock("table"), "CBT1157")
	require.NoError(t, err)
	assert.Contains(t, out, "COLOR")
	assert.Contains(t, out, "Brand")
}

func TestFetchStrict(t *testing.T) {
	_, err := fetch(t, &appcontext.Mock{}, "CBT1157", "--strict")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	out, err := fetch(t, &appcontext.Mock{}, "CBT1157")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}
