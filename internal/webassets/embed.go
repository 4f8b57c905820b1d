// Package webassets embeds the default storefront pages, served when
// no -public-dir is configured. Deployments with a real frontend build
// point -public-dir at it and never touch these.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed dist
var embedded embed.FS

// DistFS returns the embedded asset root.
func DistFS() fs.FS {
	sub, err := fs.Sub(embedded, "dist")
	if err != nil {
		panic(fmt.Errorf("webassets: dist subfs: %w", err))
	}
	return sub
}
