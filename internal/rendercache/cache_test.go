package rendercache

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/local/traceview/internal/render"
)

type fakeRenderer struct {
	mu    sync.Mutex
	calls int

	fail    error
	width   int
	height  int
	blockOn chan struct{}
	started chan struct{}
}

func (f *fakeRenderer) RenderPage(src render.Source, pageIndex int, zoom float64) (*image.RGBA, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.blockOn != nil {
		<-f.blockOn
	}
	if f.fail != nil {
		return nil, f.fail
	}

	w, h := f.width, f.height
	if w == 0 {
		w = 100
	}
	if h == 0 {
		h = 50
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGetOrRenderHitSkipsRenderer(t *testing.T) {
	rend := &fakeRenderer{}
	c := New(Options{Renderer: rend})
	src := render.FromPath("/tmp/report.pdf")
	ctx := context.Background()

	first, err := c.GetOrRender(ctx, src, 3, 2.0)
	if err != nil {
		t.Fatalf("GetOrRender() error = %v", err)
	}
	second, err := c.GetOrRender(ctx, src, 3, 2.0)
	if err != nil {
		t.Fatalf("GetOrRender() error = %v", err)
	}

	if rend.count() != 1 {
		t.Errorf("renderer called %d times, want 1", rend.count())
	}
	if first != second {
		t.Error("repeat request returned a different raster")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %d hits / %d misses, want 1/1", stats.Hits, stats.Misses)
	}
}

func TestGetOrRenderDistinctKeys(t *testing.T) {
	rend := &fakeRenderer{}
	c := New(Options{Renderer: rend})
	src := render.FromPath("/tmp/report.pdf")
	ctx := context.Background()

	if _, err := c.GetOrRender(ctx, src, 0, 2.0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrRender(ctx, src, 1, 2.0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrRender(ctx, src, 0, 3.0); err != nil {
		t.Fatal(err)
	}

	if rend.count() != 3 {
		t.Errorf("renderer called %d times, want 3 (page and zoom are part of the key)", rend.count())
	}
}

func TestGetOrRenderFailuresNeverCached(t *testing.T) {
	cause := &render.OpenError{Ref: "bad buffer", Err: errors.New("cannot open document")}
	rend := &fakeRenderer{fail: cause}
	c := New(Options{Renderer: rend})
	src := render.FromBytes([]byte("not a pdf"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.GetOrRender(ctx, src, 0, 2.0)
		var openErr *render.OpenError
		if !errors.As(err, &openErr) {
			t.Fatalf("attempt %d: error = %v, want *render.OpenError", i+1, err)
		}
	}

	if rend.count() != 2 {
		t.Errorf("renderer called %d times, want 2 (failures must be retried)", rend.count())
	}
	if stats := c.Stats(); stats.Entries != 0 {
		t.Errorf("cache holds %d entries after failures, want 0", stats.Entries)
	}
}

func TestGetOrRenderByteIdentity(t *testing.T) {
	rend := &fakeRenderer{}
	c := New(Options{Renderer: rend})
	ctx := context.Background()

	// Equal content in distinct buffers shares one entry.
	a := []byte("%PDF-1.7 fake body")
	b := append([]byte(nil), a...)

	if _, err := c.GetOrRender(ctx, render.FromBytes(a), 0, 2.0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrRender(ctx, render.FromBytes(b), 0, 2.0); err != nil {
		t.Fatal(err)
	}

	if rend.count() != 1 {
		t.Errorf("renderer called %d times, want 1 (identical bytes share an entry)", rend.count())
	}
}

func TestGetOrRenderPathIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rend := &fakeRenderer{}
	c := New(Options{Renderer: rend})
	ctx := context.Background()

	// Unclean spellings of the same file share one entry. Built by
	// hand because filepath.Join would clean them.
	sep := string(filepath.Separator)
	messy := dir + sep + "." + sep + "report.pdf"
	detour := dir + sep + ".." + sep + filepath.Base(dir) + sep + "report.pdf"

	for _, p := range []string{path, messy, detour} {
		if _, err := c.GetOrRender(ctx, render.FromPath(p), 0, 2.0); err != nil {
			t.Fatal(err)
		}
	}

	if rend.count() != 1 {
		t.Errorf("renderer called %d times, want 1 (path spellings share an entry)", rend.count())
	}
}

func TestGetOrRenderNegativePageSharesFirstPage(t *testing.T) {
	rend := &fakeRenderer{}
	c := New(Options{Renderer: rend})
	src := render.FromPath("/tmp/report.pdf")
	ctx := context.Background()

	if _, err := c.GetOrRender(ctx, src, -3, 2.0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrRender(ctx, src, 0, 2.0); err != nil {
		t.Fatal(err)
	}

	if rend.count() != 1 {
		t.Errorf("renderer called %d times, want 1 (negative pages render page 0)", rend.count())
	}
}

func TestGetOrRenderInvalidZoom(t *testing.T) {
	rend := &fakeRenderer{}
	c := New(Options{Renderer: rend})

	_, err := c.GetOrRender(context.Background(), render.FromPath("/tmp/report.pdf"), 0, -2.0)

	var zoomErr *render.InvalidZoomError
	if !errors.As(err, &zoomErr) {
		t.Fatalf("GetOrRender() error = %v, want *render.InvalidZoomError", err)
	}
	if rend.count() != 0 {
		t.Error("renderer was called for an invalid zoom")
	}
}

func TestEviction(t *testing.T) {
	// 512x256 RGBA is 0.5 MiB, so a 1 MiB budget holds two rasters.
	rend := &fakeRenderer{width: 512, height: 256}
	c := New(Options{Renderer: rend, MaxSizeMB: 1})
	ctx := context.Background()

	for page := 0; page < 3; page++ {
		if _, err := c.GetOrRender(ctx, render.FromPath("/tmp/report.pdf"), page, 2.0); err != nil {
			t.Fatal(err)
		}
	}

	stats := c.Stats()
	if stats.Entries != 2 {
		t.Errorf("entries = %d, want 2", stats.Entries)
	}
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", stats.Evictions)
	}
	if stats.Size > stats.MaxSize {
		t.Errorf("size %d exceeds budget %d", stats.Size, stats.MaxSize)
	}

	// Page 0 was the least recently used entry, so it re-renders.
	if _, err := c.GetOrRender(ctx, render.FromPath("/tmp/report.pdf"), 0, 2.0); err != nil {
		t.Fatal(err)
	}
	if rend.count() != 4 {
		t.Errorf("renderer called %d times, want 4 (evicted page re-renders)", rend.count())
	}
}

func TestUnboundedCache(t *testing.T) {
	rend := &fakeRenderer{width: 512, height: 256}
	c := New(Options{Renderer: rend, MaxSizeMB: -1})
	ctx := context.Background()

	for page := 0; page < 8; page++ {
		if _, err := c.GetOrRender(ctx, render.FromPath("/tmp/report.pdf"), page, 2.0); err != nil {
			t.Fatal(err)
		}
	}

	stats := c.Stats()
	if stats.Entries != 8 {
		t.Errorf("entries = %d, want 8 (unbounded cache must not evict)", stats.Entries)
	}
	if stats.Evictions != 0 {
		t.Errorf("evictions = %d, want 0", stats.Evictions)
	}
}

func TestDefaultBudget(t *testing.T) {
	c := New(Options{Renderer: &fakeRenderer{}})
	if got := c.Stats().MaxSize; got != DefaultMaxSizeMB*bytesPerMB {
		t.Errorf("MaxSize = %d, want %d", got, DefaultMaxSizeMB*bytesPerMB)
	}
}

func TestGetOrRenderCollapsesConcurrentRequests(t *testing.T) {
	block := make(chan struct{})
	rend := &fakeRenderer{blockOn: block, started: make(chan struct{}, 1)}
	c := New(Options{Renderer: rend})
	src := render.FromPath("/tmp/report.pdf")

	const n = 5
	results := make([]*image.RGBA, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrRender(context.Background(), src, 0, 2.0)
		}(i)
	}

	<-rend.started
	close(block)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: error = %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("goroutine %d got a different raster pointer", i)
		}
	}
	if rend.count() != 1 {
		t.Errorf("renderer called %d times, want 1 (concurrent requests must collapse)", rend.count())
	}
}

func TestGetOrRenderContextAbandonsWait(t *testing.T) {
	block := make(chan struct{})
	rend := &fakeRenderer{blockOn: block, started: make(chan struct{}, 1)}
	c := New(Options{Renderer: rend})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrRender(ctx, render.FromPath("/tmp/report.pdf"), 0, 2.0)
		errCh <- err
	}()

	<-rend.started
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("GetOrRender() error = %v, want context.Canceled", err)
	}

	// The abandoned render still completes and fills the cache.
	close(block)
	if _, err := c.GetOrRender(context.Background(), render.FromPath("/tmp/report.pdf"), 0, 2.0); err != nil {
		t.Fatalf("GetOrRender() after abandon: error = %v", err)
	}
	if got := rend.count(); got != 1 {
		t.Errorf("renderer called %d times, want 1 (abandoned flight fills the cache)", got)
	}
}

type concurrencyTrackingRenderer struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (f *concurrencyTrackingRenderer) RenderPage(render.Source, int, float64) (*image.RGBA, error) {
	f.mu.Lock()
	f.current++
	if f.current > f.peak {
		f.peak = f.current
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.current--
	f.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, 10, 10)), nil
}

func TestMaxConcurrentRendersBoundsMisses(t *testing.T) {
	rend := &concurrencyTrackingRenderer{}
	c := New(Options{Renderer: rend, MaxConcurrentRenders: 1})
	src := render.FromPath("/tmp/report.pdf")

	var wg sync.WaitGroup
	for page := 0; page < 4; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			if _, err := c.GetOrRender(context.Background(), src, page, 2.0); err != nil {
				t.Errorf("page %d: GetOrRender() error = %v", page, err)
			}
		}(page)
	}
	wg.Wait()

	if rend.peak > 1 {
		t.Errorf("renderer peak concurrency = %d, want 1", rend.peak)
	}
}

func TestDocumentID(t *testing.T) {
	a, err := documentID(render.FromBytes([]byte("same content")))
	if err != nil {
		t.Fatal(err)
	}
	b, err := documentID(render.FromBytes([]byte("same content")))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("equal buffers got different identities: %q vs %q", a, b)
	}

	other, err := documentID(render.FromBytes([]byte("different content")))
	if err != nil {
		t.Fatal(err)
	}
	if a == other {
		t.Error("different buffers share an identity")
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint([]byte("doc"))
	if len(fp) != 64 {
		t.Errorf("Fingerprint() length = %d, want 64 hex chars", len(fp))
	}
	if fp == Fingerprint([]byte("other")) {
		t.Error("different content produced the same fingerprint")
	}
}
