package appfs

import "embed"

//go:embed migrations all:templates assets
var FS embed.FS
