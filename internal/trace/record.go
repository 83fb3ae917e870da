package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/local/traceview/internal/overlay"
)

// ErrNoRecords is returned when a source decodes to an empty collection.
var ErrNoRecords = errors.New("no records found")

// DecodeError reports a records source that could not be parsed.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode records from %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Record is one positional tracing entry: a text fragment tied to a
// page of the source document, optionally with a normalized highlight
// box. Fields mirror the JSON produced by the tracing pipeline.
type Record struct {
	Text   string
	PageNo *int
	Page   *int
	BBox   []float64
}

// UnmarshalJSON accepts either a record object or a bare scalar.
// Bare strings become the record text with no page reference, which
// keeps hand-written record files usable.
func (r *Record) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty record")
	}
	if trimmed[0] != '{' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			r.Text = s
		} else {
			r.Text = string(trimmed)
		}
		r.PageNo, r.Page, r.BBox = nil, nil, nil
		return nil
	}

	var raw struct {
		Text   string          `json:"text"`
		PageNo *float64        `json:"page_no"`
		Page   *float64        `json:"page"`
		BBox   json.RawMessage `json:"bbox"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	r.Text = raw.Text
	r.PageNo = toIndex(raw.PageNo)
	r.Page = toIndex(raw.Page)

	// A bbox that is not a 4-number array is ignored, not an error.
	r.BBox = nil
	if len(raw.BBox) > 0 {
		var box []float64
		if err := json.Unmarshal(raw.BBox, &box); err == nil && len(box) == 4 {
			r.BBox = box
		}
	}
	return nil
}

func toIndex(v *float64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// PageIndex returns the zero-based page this record points at.
// page_no wins over page; a record with neither maps to page 0.
func (r *Record) PageIndex() int {
	switch {
	case r.PageNo != nil:
		return *r.PageNo
	case r.Page != nil:
		return *r.Page
	}
	return 0
}

// Box returns the record's highlight box, if it carries a usable one.
func (r *Record) Box() (overlay.Box, bool) {
	return overlay.FromSlice(r.BBox)
}

// Collection is an ordered list of records. Navigation state is an
// index into this list.
type Collection []Record

// Clamp maps any requested position onto a valid index of the
// collection.
func (c Collection) Clamp(index int) int {
	return ClampIndex(index, len(c)-1)
}

// ClampIndex clamps a position to [0, maxIndex]. The result is stable:
// clamping a clamped value returns it unchanged. A negative maxIndex
// (empty collection) clamps everything to 0.
func ClampIndex(index, maxIndex int) int {
	if index < 0 || maxIndex < 0 {
		return 0
	}
	if index > maxIndex {
		return maxIndex
	}
	return index
}
