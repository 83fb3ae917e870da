package filetype

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind classifies an upload.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindRecords     Kind = "records"
	KindUnsupported Kind = "unsupported"
)

// Info contains detected file type information
type Info struct {
	Kind      Kind
	MIMEType  string
	Extension string
}

// Detector classifies uploads using magic bytes, not the filename
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// DetectBytes classifies an in-memory upload as a PDF document, a
// tracing records file, or unsupported.
func (d *Detector) DetectBytes(data []byte) *Info {
	mtype := mimetype.Detect(data)

	info := &Info{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}

	switch {
	case mtype.Is("application/pdf"):
		info.Kind = KindPDF
	case mtype.Is("application/json"):
		info.Kind = KindRecords
	case strings.HasPrefix(info.MIMEType, "text/") && json.Valid(bytes.TrimSpace(data)):
		// Loose JSON the sniffer reads as plain text.
		info.Kind = KindRecords
	default:
		info.Kind = KindUnsupported
	}

	log.Debug().
		Str("mime", info.MIMEType).
		Str("ext", info.Extension).
		Str("kind", string(info.Kind)).
		Msg("detected upload type")

	return info
}
