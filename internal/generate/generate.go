package generate

import (
	"context"
	"errors"

	"github.com/local/traceview/internal/trace"
)

// Request carries everything needed to derive tracing records from a
// source document.
type Request struct {
	Document []byte // complete PDF
	APIKey   string // key for the inference provider
}

// Generator derives tracing records from a document.
type Generator interface {
	Name() string
	FromDocument(ctx context.Context, req Request) (trace.Collection, error)
}

var (
	// ErrNotImplemented marks the generation path that still needs an
	// inference pipeline behind it.
	ErrNotImplemented = errors.New("record generation from a document is not implemented")
	// ErrMissingAPIKey is returned when no provider key was given.
	ErrMissingAPIKey = errors.New("api key required for record generation")
)

func IsNotImplemented(err error) bool { return errors.Is(err, ErrNotImplemented) }

// Remote is the stand-in for an inference-backed generator. It
// validates the request and reports not implemented.
type Remote struct{}

func (Remote) Name() string { return "remote" }

func (Remote) FromDocument(_ context.Context, req Request) (trace.Collection, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(req.Document) == 0 {
		return nil, errors.New("no document given")
	}
	return nil, ErrNotImplemented
}
