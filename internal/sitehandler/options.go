package sitehandler

import (
	"fmt"
	"io/fs"

	"github.com/owenvale/shopfront/internal/log"
	"github.com/owenvale/shopfront/internal/xerrors"
)

var ErrInvalidOptions = xerrors.New("sitehandler: invalid options")

// DefaultPages is the storefront's page table: exact URL path to HTML
// document. Built once at startup, immutable thereafter.
func DefaultPages() map[string]string {
	return map[string]string{
		"/":         "index.html",
		"/admin":    "admin.html",
		"/login":    "login.html",
		"/register": "register.html",
		"/profile":  "profile.html",
		"/cart":     "cart.html",
		"/orders":   "orders.html",
	}
}

type Options struct {
	Logger log.Logger

	// Assets is the public asset root, served verbatim by path.
	Assets fs.FS

	// Pages maps exact URL paths to HTML documents within Assets.
	// Defaults to DefaultPages.
	Pages map[string]string

	// IndexFile is the SPA fallback document for unmatched non-API
	// paths. Default: "index.html".
	IndexFile string

	// Cache policies applied by file type.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Pages == nil {
		o.Pages = DefaultPages()
	}
	if o.IndexFile == "" {
		o.IndexFile = "index.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Assets == nil {
		return fmt.Errorf("%w: Assets is nil", ErrInvalidOptions)
	}
	// fail fast at boot if the fallback document is missing
	if _, err := fs.Stat(o.Assets, o.IndexFile); err != nil {
		return fmt.Errorf("%w: missing %q in asset root: %v", ErrInvalidOptions, o.IndexFile, err)
	}
	return nil
}
