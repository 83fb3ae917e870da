package render

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog/log"
)

// DefaultZoom is the scale factor applied to a page's natural size
// when the caller does not ask for one. 2.0 keeps body text legible
// on typical reports without ballooning the raster.
const DefaultZoom = 2.0

// ErrBackendUnavailable is returned when the process has no
// rasterization backend compiled in.
var ErrBackendUnavailable = errors.New("no rasterization backend available")

// OpenError reports a document that could not be opened: missing
// file, corrupt bytes, unsupported format.
type OpenError struct {
	Ref string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open document %s: %v", e.Ref, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// InvalidZoomError reports a zoom factor that cannot produce a raster.
type InvalidZoomError struct {
	Zoom float64
}

func (e *InvalidZoomError) Error() string {
	return fmt.Sprintf("invalid zoom factor %v: must be a positive number", e.Zoom)
}

// Source identifies a document to rasterize: either a file on disk or
// a complete in-memory buffer. When both are set the path wins.
type Source struct {
	Path string
	Data []byte
}

// FromPath builds a Source for a document on the local filesystem.
func FromPath(path string) Source {
	return Source{Path: path}
}

// FromBytes builds a Source for an in-memory document.
func FromBytes(data []byte) Source {
	return Source{Data: data}
}

// IsZero reports whether the source identifies nothing.
func (s Source) IsZero() bool {
	return s.Path == "" && len(s.Data) == 0
}

// Ref returns a short human-readable description for logs and errors.
func (s Source) Ref() string {
	if s.Path != "" {
		return s.Path
	}
	return fmt.Sprintf("memory(%d bytes)", len(s.Data))
}

// Backend opens documents for rasterization. The production backend
// wraps go-fitz and is selected at build time; tests swap in fakes.
type Backend interface {
	// Available reports whether the backend can actually rasterize.
	Available() bool
	// Open loads a document. The caller must Close the returned
	// Document.
	Open(src Source) (Document, error)
}

// Document is an open document handle.
type Document interface {
	NumPage() int
	// Image rasterizes the zero-based page at the given zoom factor
	// into an RGB raster.
	Image(pageIndex int, zoom float64) (*image.RGBA, error)
	Close() error
}

// Renderer turns document pages into pixel rasters.
type Renderer struct {
	backend Backend
}

// New returns a Renderer on the build's default backend.
func New() *Renderer {
	return &Renderer{backend: defaultBackend}
}

// NewWithBackend returns a Renderer on an explicit backend.
func NewWithBackend(b Backend) *Renderer {
	return &Renderer{backend: b}
}

// Available reports whether this renderer can rasterize documents.
func (r *Renderer) Available() bool {
	return r.backend.Available()
}

// RenderPage rasterizes one page of src at the given zoom factor. The
// page index is clamped into the document's valid range, so a stale
// index degrades the view to a nearby page instead of failing. The
// document handle is opened and closed per call; callers that care
// about repeat cost should sit a cache in front.
func (r *Renderer) RenderPage(src Source, pageIndex int, zoom float64) (*image.RGBA, error) {
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return nil, &InvalidZoomError{Zoom: zoom}
	}
	if !r.backend.Available() {
		return nil, ErrBackendUnavailable
	}
	if src.IsZero() {
		return nil, &OpenError{Ref: "empty source", Err: errors.New("no document given")}
	}

	doc, err := r.backend.Open(src)
	if err != nil {
		return nil, &OpenError{Ref: src.Ref(), Err: err}
	}
	defer doc.Close()

	total := doc.NumPage()
	if total <= 0 {
		return nil, &OpenError{Ref: src.Ref(), Err: errors.New("document has no pages")}
	}

	page := clampPage(pageIndex, total)
	if page != pageIndex {
		log.Debug().
			Int("requested", pageIndex).
			Int("clamped", page).
			Int("pages", total).
			Msg("page index clamped to document range")
	}

	img, err := doc.Image(page, zoom)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	log.Debug().
		Str("source", src.Ref()).
		Int("page", page).
		Float64("zoom", zoom).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("rendered page")

	return img, nil
}

// PageCount opens src and returns its number of pages.
func (r *Renderer) PageCount(src Source) (int, error) {
	if !r.backend.Available() {
		return 0, ErrBackendUnavailable
	}
	if src.IsZero() {
		return 0, &OpenError{Ref: "empty source", Err: errors.New("no document given")}
	}

	doc, err := r.backend.Open(src)
	if err != nil {
		return 0, &OpenError{Ref: src.Ref(), Err: err}
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// clampPage maps any requested index onto [0, total-1]. Rendering
// clamps on its own even though callers usually clamp first.
func clampPage(index, total int) int {
	if index < 0 {
		return 0
	}
	if index > total-1 {
		return total - 1
	}
	return index
}

// Available reports whether the build's default backend can rasterize.
func Available() bool {
	return defaultBackend.Available()
}
