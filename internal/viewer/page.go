package viewer

import (
	"context"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/local/traceview/internal/metrics"
	"github.com/local/traceview/internal/overlay"
	"github.com/local/traceview/internal/placeholder"
	"github.com/local/traceview/internal/session"
	"github.com/local/traceview/internal/trace"
)

// handlePage serves the rendered page for one record as PNG. It never
// fails toward the browser: any render problem is logged and answered
// with the placeholder so the viewer page keeps its layout.
func (v *Viewer) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, st := v.session(w, r)

	recs := v.currentRecords(st)
	index := st.Index
	if q := r.URL.Query().Get("i"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			index = n
		}
	}

	var rec *trace.Record
	if len(recs) > 0 {
		rec = &recs[trace.ClampIndex(index, len(recs)-1)]
	}

	img := v.pageImage(r.Context(), st, rec)

	// The image depends on session state, not just the URL.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		log.Debug().Err(err).Msg("png write failed")
	}
}

// pageImage produces the raster for a record: the rendered page with
// its highlight box when everything works, the placeholder otherwise.
func (v *Viewer) pageImage(ctx context.Context, st session.State, rec *trace.Record) image.Image {
	if rec == nil || !v.rendererOK() {
		metrics.PageServed("placeholder")
		return placeholder.Default()
	}

	src, ok := v.currentDocument(st)
	if !ok {
		metrics.PageServed("placeholder")
		return placeholder.Default()
	}

	img, err := v.cache.GetOrRender(ctx, src, rec.PageIndex(), v.zoom)
	if err != nil {
		log.Warn().
			Err(err).
			Int("page", rec.PageIndex()).
			Str("source", src.Ref()).
			Msg("page render failed, serving placeholder")
		metrics.PageServed("placeholder")
		return placeholder.Default()
	}

	metrics.PageServed("rendered")
	if box, ok := rec.Box(); ok {
		// Draw works on a copy; the cached raster stays unmarked for
		// the next request.
		return overlay.Draw(img, &box)
	}
	return img
}
