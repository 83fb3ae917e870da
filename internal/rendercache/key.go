package rendercache

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/local/traceview/internal/render"
)

// Key identifies one cached raster: a stable document identity plus
// the page and zoom it was rendered at.
type Key struct {
	Doc  string
	Page int
	Zoom float64
}

// id is the flat string form of the key, used for request collapsing.
func (k Key) id() string {
	return k.Doc + "|p" + strconv.Itoa(k.Page) + "|z" + strconv.FormatFloat(k.Zoom, 'g', -1, 64)
}

// newKey derives the cache key for a render request. Negative page
// indices always rasterize the first page, so they share its entry;
// indices beyond the document's end are keyed as requested because
// the document is not opened here.
func newKey(src render.Source, pageIndex int, zoom float64) (Key, error) {
	doc, err := documentID(src)
	if err != nil {
		return Key{}, err
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	return Key{Doc: doc, Page: pageIndex, Zoom: zoom}, nil
}

// documentID derives a stable identity for a source. Paths use their
// cleaned absolute form, so "a.pdf" and "./a.pdf" share entries.
// In-memory buffers are fingerprinted with BLAKE2b-256, so equal
// bytes share entries no matter how often they are re-uploaded.
func documentID(src render.Source) (string, error) {
	if src.Path != "" {
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve document path: %w", err)
		}
		return "file:" + abs, nil
	}
	sum := blake2b.Sum256(src.Data)
	return "mem:" + hex.EncodeToString(sum[:]), nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of a document buffer.
// The viewer uses it to tell uploads apart.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
