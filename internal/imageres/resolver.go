// Package imageres maps a menu item's image reference to something the
// browser can load: a remote URL passes through, a local file is probed
// against the image directory, and everything else falls back to an inline
// SVG placeholder.
package imageres

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var probeExtensions = []string{".jpeg", ".jpg", ".png", ".webp"}

// Placeholder is an inline SVG shown when no image can be resolved. Inlined
// as a data URI so it needs no extra request and never 404s.
const Placeholder = "data:image/svg+xml," +
	"%3Csvg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'%3E" +
	"%3Crect width='100' height='100' fill='%23e8e4dc'/%3E" +
	"%3Ctext x='50' y='55' font-size='40' text-anchor='middle'%3E%F0%9F%8D%BD%3C/text%3E" +
	"%3C/svg%3E"

// Resolver probes a directory of item images and produces URLs for the menu
// grid.
type Resolver struct {
	dir       string
	urlPrefix string
}

// New returns a resolver over dir. Resolved local files are addressed as
// urlPrefix + filename.
func New(dir, urlPrefix string) *Resolver {
	return &Resolver{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/") + "/"}
}

// Resolve returns a loadable URL for a menu item. Resolution order: remote
// URLs pass through untouched, an explicit imageRef is checked against the
// directory, then name-derived candidates are probed, and finally the
// placeholder wins.
func (r *Resolver) Resolve(imageRef, itemName string) string {
	if isRemote(imageRef) {
		return imageRef
	}

	for _, candidate := range r.candidates(imageRef, itemName) {
		if r.exists(candidate) {
			return r.urlPrefix + url.PathEscape(candidate)
		}
	}
	return Placeholder
}

func (r *Resolver) candidates(imageRef, itemName string) []string {
	var out []string
	if imageRef != "" {
		out = append(out, filepath.Base(imageRef))
	}
	base := strings.ToLower(strings.TrimSpace(itemName))
	base = strings.ReplaceAll(base, " ", "-")
	if base != "" {
		for _, ext := range probeExtensions {
			out = append(out, base+ext)
		}
	}
	return out
}

func (r *Resolver) exists(name string) bool {
	if r.dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(r.dir, name))
	return err == nil && !info.IsDir()
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "data:")
}

// FilePath returns the on-disk path for a previously resolved local file
// name. Used by the handler that serves item images.
func (r *Resolver) FilePath(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || name == "" || name == "." {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	if !r.exists(clean) {
		return "", os.ErrNotExist
	}
	return filepath.Join(r.dir, clean), nil
}
