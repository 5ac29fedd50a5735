package embedded

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/horde/pkg/guild"
)

func TestDefaultCatalogLoads(t *testing.T) {
	catalog, err := guild.LoadFromBytes(DefaultCatalog())
	require.NoError(t, err)
	assert.Empty(t, catalog.Warnings())

	for _, id := range []string{"websmith", "crafter", "gatekeeper", "scribe"} {
		_, err := catalog.Agent(id)
		assert.NoError(t, err, id)
	}

	websmith, err := catalog.Agent("websmith")
	require.NoError(t, err)
	tool, err := catalog.SelectTool(websmith, "deploy the latest release")
	require.NoError(t, err)
	require.NotNil(t, tool)
	assert.Equal(t, "deploy-site", tool.ID)
}
