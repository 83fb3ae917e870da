package generate

import (
	"context"
	"errors"
	"testing"
)

func TestRemoteFromDocument(t *testing.T) {
	ctx := context.Background()
	gen := Remote{}

	if gen.Name() != "remote" {
		t.Errorf("Name() = %q, want %q", gen.Name(), "remote")
	}

	t.Run("missing api key", func(t *testing.T) {
		_, err := gen.FromDocument(ctx, Request{Document: []byte("%PDF-")})
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("error = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := gen.FromDocument(ctx, Request{APIKey: "sk-test"})
		if err == nil || errors.Is(err, ErrNotImplemented) {
			t.Errorf("error = %v, want a validation error", err)
		}
	})

	t.Run("valid request reports not implemented", func(t *testing.T) {
		recs, err := gen.FromDocument(ctx, Request{Document: []byte("%PDF-"), APIKey: "sk-test"})
		if !IsNotImplemented(err) {
			t.Errorf("error = %v, want ErrNotImplemented", err)
		}
		if recs != nil {
			t.Errorf("records = %v, want nil", recs)
		}
	})
}
