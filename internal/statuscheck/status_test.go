package statuscheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSummaryHealthy(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "report.pdf", "%PDF-1.4")
	recs := writeFile(t, dir, "records.json", `[{"text": "a"}, {"text": "b"}]`)

	c := New(Options{
		Sessions:     fakePinger{},
		RendererOK:   func() bool { return true },
		RecordsPath:  recs,
		DocumentPath: doc,
	})

	sum := c.Summary(context.Background())

	if !sum.Renderer.OK {
		t.Errorf("Renderer = %+v, want OK", sum.Renderer)
	}
	if !sum.Sessions.OK {
		t.Errorf("Sessions = %+v, want OK", sum.Sessions)
	}
	if !sum.Document.OK {
		t.Errorf("Document = %+v, want OK", sum.Document)
	}
	if !sum.Records.OK || sum.Records.Message != "2 records" {
		t.Errorf("Records = %+v, want OK with %q", sum.Records, "2 records")
	}
}

func TestSummaryFailures(t *testing.T) {
	dir := t.TempDir()
	badRecs := writeFile(t, dir, "broken.json", `{not json`)

	c := New(Options{
		Sessions:     fakePinger{err: errors.New("connection refused")},
		RendererOK:   func() bool { return false },
		RecordsPath:  badRecs,
		DocumentPath: filepath.Join(dir, "missing.pdf"),
	})

	sum := c.Summary(context.Background())

	if sum.Renderer.OK {
		t.Error("Renderer reported OK without a backend")
	}
	if sum.Sessions.OK {
		t.Error("Sessions reported OK with a failing ping")
	}
	if sum.Document.OK || sum.Document.Message != "File not found" {
		t.Errorf("Document = %+v, want file-not-found failure", sum.Document)
	}
	if sum.Records.OK {
		t.Error("Records reported OK for unparseable file")
	}
}

func TestSummaryUnconfigured(t *testing.T) {
	c := New(Options{})
	sum := c.Summary(context.Background())

	for name, st := range map[string]Status{
		"renderer": sum.Renderer,
		"sessions": sum.Sessions,
		"document": sum.Document,
		"records":  sum.Records,
	} {
		if st.OK {
			t.Errorf("%s reported OK with nothing configured", name)
		}
	}
}

func TestSummaryEmptyRecords(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.json", `[]`)

	c := New(Options{RecordsPath: empty})

	if st := c.Summary(context.Background()).Records; st.OK || st.Message != "Records file is empty" {
		t.Errorf("Records = %+v, want empty-file failure", st)
	}
}
