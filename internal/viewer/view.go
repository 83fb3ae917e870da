package viewer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/local/traceview/internal/trace"
)

type viewData struct {
	Title    string
	Info     string
	Warnings []string

	HasRecords bool
	Index      int // zero-based position in the collection
	Position   int // one-based, for display
	Total      int
	HasPrev    bool
	HasNext    bool
	PrevIndex  int
	NextIndex  int
	Text       template.HTML

	PageLabel int // one-based page number of the record
	PageCount int // total pages of the document, 0 = unknown
	ImageURL  string
}

// handleView serves the two-pane viewer page. The i query parameter
// moves the session to that record; it is clamped against the active
// collection, so stale links from an older, larger collection land on
// the last record instead of failing.
func (v *Viewer) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sid, st := v.session(w, r)

	data := viewData{Title: "Tracing Positional Viewer"}

	recs := v.currentRecords(st)
	if len(recs) == 0 {
		data.Info = "Upload a records file (or generate one from a document) to begin."
		v.renderView(w, data)
		return
	}

	maxIndex := len(recs) - 1
	index := st.Index
	if q := r.URL.Query().Get("i"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			index = n
		}
	}
	index = trace.ClampIndex(index, maxIndex)
	if index != st.Index {
		st.Index = index
		v.saveSession(r.Context(), sid, st)
	}

	rec := recs[index]
	data.HasRecords = true
	data.Index = index
	data.Position = index + 1
	data.Total = len(recs)
	data.HasPrev = index > 0
	data.HasNext = index < maxIndex
	data.PrevIndex = trace.ClampIndex(index-1, maxIndex)
	data.NextIndex = trace.ClampIndex(index+1, maxIndex)
	data.Text = v.renderMarkdown(rec.Text)
	data.ImageURL = fmt.Sprintf("/page.png?i=%d", index)

	page := rec.PageIndex()
	if page < 0 {
		page = 0
	}
	data.PageLabel = page + 1

	src, haveDoc := v.currentDocument(st)
	switch {
	case !v.rendererOK():
		data.Warnings = append(data.Warnings, "No rasterization backend in this build; showing a placeholder instead of the page.")
	case !haveDoc && v.documentPath == "":
		data.Warnings = append(data.Warnings, "No document configured; upload one to see its pages.")
	case !haveDoc:
		data.Warnings = append(data.Warnings, fmt.Sprintf("Document not found at %s.", v.documentPath))
	default:
		data.PageCount = v.documentPages(r.Context(), src)
	}

	v.renderView(w, data)
}

func (v *Viewer) renderView(w http.ResponseWriter, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := v.tpl.ExecuteTemplate(w, "view.html", data); err != nil {
		log.Error().Err(err).Msg("view template failed")
	}
}

// renderMarkdown converts record text to HTML. Conversion failures
// degrade to escaped plain text so a malformed record never blanks
// the pane.
func (v *Viewer) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := v.md.Convert([]byte(src), &buf); err != nil {
		log.Debug().Err(err).Msg("markdown conversion failed, showing raw text")
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
