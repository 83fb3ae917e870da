// Package viewer is the HTTP face of traceview: a two-pane page with
// the current tracing record on the left and the rendered source page,
// highlight included, on the right. It is thin glue over the render
// pipeline; everything here either resolves which record and document
// a session is looking at or translates pipeline failures into
// placeholders and warnings.
package viewer

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/local/traceview/internal/docsource"
	"github.com/local/traceview/internal/filetype"
	"github.com/local/traceview/internal/generate"
	"github.com/local/traceview/internal/metrics"
	"github.com/local/traceview/internal/render"
	"github.com/local/traceview/internal/rendercache"
	"github.com/local/traceview/internal/session"
	"github.com/local/traceview/internal/statuscheck"
	"github.com/local/traceview/internal/trace"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	sessionCookie   = "sid"
	defaultUploadMB = 64
	pdfExt          = ".pdf"
	recordsExt      = ".json"
)

// Options wires the viewer to its collaborators.
type Options struct {
	// Records is the bundled collection shown before any upload. May
	// be nil when no records file ships with the deployment.
	Records trace.Collection
	// DocumentPath is the local path of the bundled document. Empty
	// when none is configured.
	DocumentPath string
	// UploadDir receives uploaded documents and record files, stored
	// under their content digest.
	UploadDir string
	// UploadMaxMB caps a single upload request. Zero selects the
	// default of 64.
	UploadMaxMB int
	// Zoom is the scale pages are rendered at. Zero selects
	// render.DefaultZoom.
	Zoom float64
	// RendererOK reports whether a rasterization backend exists.
	RendererOK func() bool
	// Cache serves page rasters. Required.
	Cache *rendercache.Cache
	// Sessions persists per-browser navigation state. Required.
	Sessions session.Store
	// Generator backs the records-from-document endpoint. Required.
	Generator generate.Generator
	// Status aggregates readiness checks for /status. Required.
	Status *statuscheck.Checker
}

// Viewer serves the trace viewing UI and its supporting endpoints.
type Viewer struct {
	records      trace.Collection
	documentPath string
	uploadDir    string
	uploadMax    int64
	zoom         float64
	rendererOK   func() bool
	cache        *rendercache.Cache
	sessions     session.Store
	generator    generate.Generator
	status       *statuscheck.Checker

	tpl      *template.Template
	md       goldmark.Markdown
	detector *filetype.Detector

	mu         sync.RWMutex
	uploadRecs map[string]trace.Collection // records digest -> parsed upload
	pageCounts map[string]int              // document path -> page count
}

// New builds a Viewer from its options.
func New(opts Options) *Viewer {
	if opts.UploadMaxMB <= 0 {
		opts.UploadMaxMB = defaultUploadMB
	}
	if opts.Zoom <= 0 {
		opts.Zoom = render.DefaultZoom
	}
	if opts.RendererOK == nil {
		opts.RendererOK = func() bool { return false }
	}

	return &Viewer{
		records:      opts.Records,
		documentPath: opts.DocumentPath,
		uploadDir:    opts.UploadDir,
		uploadMax:    int64(opts.UploadMaxMB) << 20,
		zoom:         opts.Zoom,
		rendererOK:   opts.RendererOK,
		cache:        opts.Cache,
		sessions:     opts.Sessions,
		generator:    opts.Generator,
		status:       opts.Status,
		tpl:          template.Must(template.ParseFS(templatesFS, "templates/*.html")),
		// Records carry markdown, occasionally with inline HTML the
		// tracing pipeline emits; render it as-is like the original
		// viewer did.
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(ghtml.WithUnsafe()),
		),
		detector:   filetype.New(),
		uploadRecs: make(map[string]trace.Collection),
		pageCounts: make(map[string]int),
	}
}

// RegisterRoutes mounts all viewer endpoints on mux.
func (v *Viewer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", v.handleRoot)
	mux.HandleFunc("/view", v.handleView)
	mux.HandleFunc("/page.png", v.handlePage)
	mux.HandleFunc("/upload", v.handleUpload)
	mux.HandleFunc("/generate", v.handleGenerate)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", v.handleStatus)
	mux.Handle("/metrics", metrics.Handler())
}

func (v *Viewer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/view", http.StatusFound)
}

// session loads the request's viewer session, minting a cookie for
// first-time visitors. A store failure degrades to a fresh state
// rather than an error page.
func (v *Viewer) session(w http.ResponseWriter, r *http.Request) (string, session.State) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		st, ok, err := v.sessions.Get(r.Context(), c.Value)
		if err != nil {
			log.Warn().Err(err).Msg("session load failed, starting fresh")
		}
		if !ok {
			st = session.State{}
		}
		return c.Value, st
	}

	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sid, Path: "/", HttpOnly: true})
	return sid, session.State{}
}

func (v *Viewer) saveSession(ctx context.Context, sid string, st session.State) {
	if err := v.sessions.Set(ctx, sid, st); err != nil {
		log.Warn().Err(err).Msg("session save failed")
	}
}

// currentRecords picks the session's uploaded collection when one is
// on file, the bundled one otherwise. A digest whose upload has
// vanished falls back to the bundled set.
func (v *Viewer) currentRecords(st session.State) trace.Collection {
	if st.RecordsDigest != "" {
		if recs := v.uploadedRecords(st.RecordsDigest); recs != nil {
			return recs
		}
		log.Debug().Str("digest", st.RecordsDigest).Msg("uploaded records missing, using bundled set")
	}
	return v.records
}

func (v *Viewer) uploadedRecords(digest string) trace.Collection {
	v.mu.RLock()
	recs, ok := v.uploadRecs[digest]
	v.mu.RUnlock()
	if ok {
		return recs
	}

	// Not in memory: another replica may have taken the upload, or the
	// process restarted. Reload from the shared upload dir.
	recs, err := trace.Load(filepath.Join(v.uploadDir, digest+recordsExt))
	if err != nil {
		return nil
	}
	v.mu.Lock()
	v.uploadRecs[digest] = recs
	v.mu.Unlock()
	return recs
}

// currentDocument resolves which document to render: the session's
// upload when present, the bundled document otherwise. ok is false
// when neither exists on disk.
func (v *Viewer) currentDocument(st session.State) (render.Source, bool) {
	if st.DocDigest != "" {
		path := filepath.Join(v.uploadDir, st.DocDigest+pdfExt)
		if fileExists(path) {
			return render.FromPath(path), true
		}
		log.Debug().Str("digest", st.DocDigest).Msg("uploaded document missing, using bundled one")
	}
	if v.documentPath != "" && fileExists(v.documentPath) {
		return render.FromPath(v.documentPath), true
	}
	return render.Source{}, false
}

// documentPages returns the page count shown in the page pane header,
// memoized per document. Zero means unknown; the header omits it.
func (v *Viewer) documentPages(ctx context.Context, src render.Source) int {
	if src.Path == "" {
		return 0
	}

	v.mu.RLock()
	n, ok := v.pageCounts[src.Path]
	v.mu.RUnlock()
	if ok {
		return n
	}

	n, err := docsource.PageCount(ctx, src.Path)
	if err != nil {
		log.Debug().Err(err).Str("path", src.Path).Msg("page count failed")
		return 0
	}
	v.mu.Lock()
	v.pageCounts[src.Path] = n
	v.mu.Unlock()
	return n
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
