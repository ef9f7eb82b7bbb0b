package version_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/cmd/attrmap/cmd/version"
	"github.com/agentstation/attrmap/internal/appcontext"
)

func TestVersionText(t *testing.T) {
	cmd := version.NewCommand(&appcontext.Mock{Format: "table"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "attrmap version dev")
	assert.Contains(t, out.String(), "built by: test")
}

func TestVersionJSON(t *testing.T) {
	cmd := version.NewCommand(&appcontext.Mock{Format: "json"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	var info version.Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.Commit)
	assert.NotEmpty(t, info.GoVersion)
}
