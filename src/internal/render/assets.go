package render

import (
	"embed"
	"io/fs"
)

//go:embed assets
var assetFS embed.FS

// Assets returns the stylesheets, icons and default background the status
// page links to, rooted at the assets directory.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// DefaultBackground is the path of the built-in background below the asset
// root.
const DefaultBackground = "bg/default.svg"
