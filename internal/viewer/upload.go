package viewer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/traceview/internal/docsource"
	"github.com/local/traceview/internal/filetype"
	"github.com/local/traceview/internal/generate"
	"github.com/local/traceview/internal/metrics"
	"github.com/local/traceview/internal/rendercache"
	"github.com/local/traceview/internal/session"
	"github.com/local/traceview/internal/trace"
)

// handleUpload takes multipart uploads of a document, a records file,
// or both. Files are classified by content, not field name or
// extension, stored under their digest and bound to the session. A
// request containing any unusable file is rejected whole.
func (v *Viewer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sid, st := v.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, v.uploadMax)
	if err := r.ParseMultipartForm(v.uploadMax); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	accepted := 0
	for _, headers := range r.MultipartForm.File {
		for _, hdr := range headers {
			if hdr.Size == 0 {
				// Browsers submit empty parts for untouched file
				// inputs; skip them.
				continue
			}
			if err := v.acceptUpload(hdr, &st); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			accepted++
		}
	}

	if accepted == 0 {
		http.Error(w, "no files in upload", http.StatusBadRequest)
		return
	}

	v.saveSession(r.Context(), sid, st)
	http.Redirect(w, r, "/view", http.StatusSeeOther)
}

// acceptUpload sniffs one uploaded file and stores it under its
// content digest. A new records collection resets navigation to the
// first record; a new document keeps the position and lets the page
// clamp absorb any mismatch.
func (v *Viewer) acceptUpload(hdr *multipart.FileHeader, st *session.State) error {
	f, err := hdr.Open()
	if err != nil {
		return fmt.Errorf("failed to read upload %s: %w", hdr.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read upload %s: %w", hdr.Filename, err)
	}

	info := v.detector.DetectBytes(data)
	switch info.Kind {
	case filetype.KindPDF:
		if _, err := docsource.PageCountBytes(data); err != nil {
			metrics.IncUpload("pdf", "error")
			return fmt.Errorf("%s is not a readable PDF", hdr.Filename)
		}
		digest := rendercache.Fingerprint(data)
		if err := v.saveUpload(digest+pdfExt, data); err != nil {
			metrics.IncUpload("pdf", "error")
			return err
		}
		st.DocDigest = digest
		metrics.IncUpload("pdf", "ok")
		log.Info().
			Str("file", hdr.Filename).
			Str("digest", digest[:12]).
			Int("bytes", len(data)).
			Msg("document upload accepted")

	case filetype.KindRecords:
		recs, err := trace.Decode(bytes.NewReader(data), hdr.Filename)
		if err != nil {
			metrics.IncUpload("records", "error")
			return fmt.Errorf("%s is not a usable records file: %v", hdr.Filename, err)
		}
		digest := rendercache.Fingerprint(data)
		if err := v.saveUpload(digest+recordsExt, data); err != nil {
			metrics.IncUpload("records", "error")
			return err
		}
		v.mu.Lock()
		v.uploadRecs[digest] = recs
		v.mu.Unlock()
		if st.RecordsDigest != digest {
			st.Index = 0
		}
		st.RecordsDigest = digest
		metrics.IncUpload("records", "ok")
		log.Info().
			Str("file", hdr.Filename).
			Str("digest", digest[:12]).
			Int("records", len(recs)).
			Msg("records upload accepted")

	default:
		metrics.IncUpload("unsupported", "error")
		return fmt.Errorf("%s: unsupported file type %s", hdr.Filename, info.MIMEType)
	}

	return nil
}

// saveUpload writes data into the upload dir under its digest name.
// Uploads land under a temp name first so a crash cannot leave a
// half-written file behind a valid digest.
func (v *Viewer) saveUpload(name string, data []byte) error {
	if err := os.MkdirAll(v.uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	path := filepath.Join(v.uploadDir, name)
	if fileExists(path) {
		// Same digest, same content.
		return nil
	}

	tmp := filepath.Join(v.uploadDir, "tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}

// handleGenerate is the records-from-document pathway. The shipped
// generator validates the request and reports not implemented; the
// endpoint exists so clients integrate against a stable shape.
func (v *Viewer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, st := v.session(w, r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	apiKey := r.Form.Get("api_key")
	if apiKey == "" {
		http.Error(w, generate.ErrMissingAPIKey.Error(), http.StatusBadRequest)
		return
	}

	src, ok := v.currentDocument(st)
	if !ok {
		http.Error(w, "no document to generate records from", http.StatusBadRequest)
		return
	}
	data, err := os.ReadFile(src.Path)
	if err != nil {
		http.Error(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	recs, err := v.generator.FromDocument(r.Context(), generate.Request{Document: data, APIKey: apiKey})
	if err != nil {
		switch {
		case errors.Is(err, generate.ErrMissingAPIKey):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case generate.IsNotImplemented(err):
			http.Error(w, err.Error(), http.StatusNotImplemented)
		default:
			log.Error().Err(err).Msg("record generation failed")
			http.Error(w, "record generation failed", http.StatusBadGateway)
		}
		return
	}

	// No shipped generator reaches this point yet.
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "records": len(recs)})
}
