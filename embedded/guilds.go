// Package embedded provides files compiled into the horde binary, so a
// default agent catalog is always available even when the binary ships
// without its source tree.
package embedded

import (
	_ "embed"
)

// GuildsYAML is the default guild catalog, used when no catalog file is
// found on disk.
//
//go:embed guilds.yaml
var GuildsYAML []byte

// DefaultCatalog returns the embedded default catalog document.
func DefaultCatalog() []byte {
	return GuildsYAML
}
