package session

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := s.Get(ctx, "unknown"); err != nil || ok {
		t.Fatalf("Get(unknown) = ok %v, err %v; want false, nil", ok, err)
	}

	want := State{Index: 4, DocDigest: "abc", RecordsDigest: "def"}
	if err := s.Set(ctx, "sid-1", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := s.Get(ctx, "sid-1")
	if err != nil || !ok {
		t.Fatalf("Get(sid-1) = ok %v, err %v; want true, nil", ok, err)
	}
	if got != want {
		t.Errorf("Get(sid-1) = %+v, want %+v", got, want)
	}

	// Overwrites replace the whole state.
	if err := s.Set(ctx, "sid-1", State{Index: 9}); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get(ctx, "sid-1")
	if got.Index != 9 || got.DocDigest != "" {
		t.Errorf("after overwrite: %+v, want index 9 and empty digests", got)
	}

	// Sessions are independent.
	if _, ok, _ := s.Get(ctx, "sid-2"); ok {
		t.Error("unrelated session id resolved to state")
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
