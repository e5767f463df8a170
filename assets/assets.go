// Package assets holds the backgrounds bundled into the binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed backgrounds
var backgrounds embed.FS

// Backgrounds returns the bundled background images rooted at their directory
func Backgrounds() fs.FS {
	sub, err := fs.Sub(backgrounds, "backgrounds")
	if err != nil {
		// fs.Sub only fails on an invalid path literal
		panic(err)
	}
	return sub
}
