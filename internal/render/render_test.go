package render

import (
	"errors"
	"image"
	"math"
	"testing"
)

type fakeDoc struct {
	pages    int
	imageErr error

	lastPage int
	lastZoom float64
	renders  int
	closed   int
}

func (d *fakeDoc) NumPage() int {
	return d.pages
}

func (d *fakeDoc) Image(pageIndex int, zoom float64) (*image.RGBA, error) {
	d.renders++
	d.lastPage = pageIndex
	d.lastZoom = zoom
	if d.imageErr != nil {
		return nil, d.imageErr
	}
	return image.NewRGBA(image.Rect(0, 0, 100, 50)), nil
}

func (d *fakeDoc) Close() error {
	d.closed++
	return nil
}

type fakeBackend struct {
	unavailable bool
	openErr     error
	doc         *fakeDoc
	opens       int
}

func (b *fakeBackend) Available() bool {
	return !b.unavailable
}

func (b *fakeBackend) Open(Source) (Document, error) {
	b.opens++
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.doc, nil
}

func TestRenderPageClampsIndex(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		wantPage int
	}{
		{"negative index clamps to first page", -5, 0},
		{"huge index clamps to last page", 10000, 9},
		{"valid index passes through", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &fakeDoc{pages: 10}
			r := NewWithBackend(&fakeBackend{doc: doc})

			img, err := r.RenderPage(FromPath("report.pdf"), tt.index, DefaultZoom)
			if err != nil {
				t.Fatalf("RenderPage() error = %v", err)
			}
			if img == nil {
				t.Fatal("RenderPage() returned nil image")
			}
			if doc.lastPage != tt.wantPage {
				t.Errorf("rendered page %d, want %d", doc.lastPage, tt.wantPage)
			}
		})
	}
}

func TestRenderPageInvalidZoom(t *testing.T) {
	for _, zoom := range []float64{0, -1.5, math.NaN(), math.Inf(1)} {
		backend := &fakeBackend{doc: &fakeDoc{pages: 3}}
		r := NewWithBackend(backend)

		_, err := r.RenderPage(FromPath("report.pdf"), 0, zoom)

		var zoomErr *InvalidZoomError
		if !errors.As(err, &zoomErr) {
			t.Fatalf("RenderPage(zoom=%v) error = %v, want *InvalidZoomError", zoom, err)
		}
		if backend.opens != 0 {
			t.Errorf("RenderPage(zoom=%v) opened the document before validating", zoom)
		}
	}
}

func TestRenderPageBackendUnavailable(t *testing.T) {
	r := NewWithBackend(&fakeBackend{unavailable: true})

	_, err := r.RenderPage(FromPath("report.pdf"), 0, DefaultZoom)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("RenderPage() error = %v, want ErrBackendUnavailable", err)
	}
	if r.Available() {
		t.Error("Available() = true for unavailable backend")
	}
}

func TestRenderPageOpenError(t *testing.T) {
	cause := errors.New("cannot open document")
	r := NewWithBackend(&fakeBackend{openErr: cause})

	_, err := r.RenderPage(FromBytes([]byte("not a pdf")), 0, DefaultZoom)

	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("RenderPage() error = %v, want *OpenError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("OpenError does not wrap the backend error: %v", err)
	}
}

func TestRenderPageEmptySource(t *testing.T) {
	backend := &fakeBackend{doc: &fakeDoc{pages: 3}}
	r := NewWithBackend(backend)

	_, err := r.RenderPage(Source{}, 0, DefaultZoom)

	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("RenderPage() error = %v, want *OpenError", err)
	}
	if backend.opens != 0 {
		t.Error("RenderPage() tried to open an empty source")
	}
}

func TestRenderPageNoPages(t *testing.T) {
	doc := &fakeDoc{pages: 0}
	r := NewWithBackend(&fakeBackend{doc: doc})

	_, err := r.RenderPage(FromPath("empty.pdf"), 0, DefaultZoom)

	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("RenderPage() error = %v, want *OpenError", err)
	}
	if doc.closed != 1 {
		t.Errorf("document closed %d times, want 1", doc.closed)
	}
}

func TestRenderPageClosesDocument(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		doc := &fakeDoc{pages: 5}
		r := NewWithBackend(&fakeBackend{doc: doc})

		if _, err := r.RenderPage(FromPath("report.pdf"), 2, DefaultZoom); err != nil {
			t.Fatalf("RenderPage() error = %v", err)
		}
		if doc.closed != 1 {
			t.Errorf("document closed %d times, want 1", doc.closed)
		}
	})

	t.Run("on render failure", func(t *testing.T) {
		doc := &fakeDoc{pages: 5, imageErr: errors.New("render failed")}
		r := NewWithBackend(&fakeBackend{doc: doc})

		if _, err := r.RenderPage(FromPath("report.pdf"), 2, DefaultZoom); err == nil {
			t.Fatal("RenderPage() error = nil, want error")
		}
		if doc.closed != 1 {
			t.Errorf("document closed %d times, want 1", doc.closed)
		}
	})
}

func TestRenderPageForwardsZoom(t *testing.T) {
	doc := &fakeDoc{pages: 1}
	r := NewWithBackend(&fakeBackend{doc: doc})

	if _, err := r.RenderPage(FromPath("report.pdf"), 0, 3.5); err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if doc.lastZoom != 3.5 {
		t.Errorf("backend got zoom %v, want 3.5", doc.lastZoom)
	}
}

func TestPageCount(t *testing.T) {
	r := NewWithBackend(&fakeBackend{doc: &fakeDoc{pages: 12}})

	n, err := r.PageCount(FromPath("report.pdf"))
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 12 {
		t.Errorf("PageCount() = %d, want 12", n)
	}
}

func TestSourceRef(t *testing.T) {
	if got := FromPath("/tmp/report.pdf").Ref(); got != "/tmp/report.pdf" {
		t.Errorf("Ref() = %q, want path", got)
	}
	if got := FromBytes([]byte("abcd")).Ref(); got != "memory(4 bytes)" {
		t.Errorf("Ref() = %q, want %q", got, "memory(4 bytes)")
	}
	if !(Source{}).IsZero() {
		t.Error("IsZero() = false for empty source")
	}
	if FromBytes([]byte("x")).IsZero() {
		t.Error("IsZero() = true for byte source")
	}
}
