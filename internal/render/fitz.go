//go:build cgo && !nofitz

package render

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitzBackend rasterizes through the MuPDF bindings. It is the
// default backend on cgo builds; build with -tags nofitz to drop the
// native dependency.
type fitzBackend struct{}

var defaultBackend Backend = fitzBackend{}

func (fitzBackend) Available() bool {
	return true
}

func (fitzBackend) Open(src Source) (Document, error) {
	var (
		doc *fitz.Document
		err error
	)
	if src.Path != "" {
		doc, err = fitz.New(src.Path)
	} else {
		doc, err = fitz.NewFromMemory(src.Data)
	}
	if err != nil {
		return nil, err
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

// Image renders through ImageDPI. A page's natural coordinate space is
// 72 DPI, so zoom maps directly onto dots per inch.
func (d *fitzDocument) Image(pageIndex int, zoom float64) (*image.RGBA, error) {
	return d.doc.ImageDPI(pageIndex, zoom*72.0)
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
