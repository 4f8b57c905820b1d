// Package sitehandler serves the storefront's HTML pages and static
// assets, falling back to the root document for unmatched non-API
// paths so the client-side router can take over.
package sitehandler

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
)

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// hardening: pages and assets are read-only
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// 1. page table: exact path match against the named HTML documents.
	// Checked before the asset root so the storefront pages are
	// reserved paths; an extensionless file that happens to share a
	// page's name cannot shadow it.
	if doc, ok := h.opts.Pages[r.URL.Path]; ok {
		h.serveDocument(w, r, doc)
		return
	}

	// 2. static asset: path resolves to a file under the asset root
	if file, ok := resolvePath(r.URL.Path, h.opts.Assets); ok {
		w.Header().Set("Cache-Control", h.opts.AssetCacheControl)
		h.serveFile(w, r, file)
		return
	}

	// 3. SPA fallback: unmatched non-API paths get the root document
	// with 200 so client-side routes resolve on hard reload.
	h.serveDocument(w, r, h.opts.IndexFile)
}

func (h *Handler) serveDocument(w http.ResponseWriter, r *http.Request, name string) {
	w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	if !existsFile(h.opts.Assets, name) {
		// mispackaged asset root; index.html presence is checked at
		// boot, named pages may still be missing
		h.opts.Logger.Warn(r.Context(), "page document missing from asset root", "document", name)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404 page not found"))
		return
	}
	h.serveFile(w, r, name)
}

// serveFile streams a single named file with 200. http.ServeFileFS is
// unusable here: it redirects any URL ending in /index.html, and the
// SPA fallback serves index.html under arbitrary URLs.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := h.opts.Assets.Open(name)
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}

	// embed.FS, os.DirFS and fstest.MapFS files all seek
	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, info.ModTime(), rs)
		return
	}

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, f)
	}
}
