package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/local/traceview/internal/trace"
)

// SessionPinger models the minimal session store capability we need
// for status checks.
type SessionPinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates readiness checks for the viewer's dependencies.
type Checker struct {
	sessions    SessionPinger
	rendererOK  func() bool
	recordsPath string
	docPath     string
}

// Options configures the Checker.
type Options struct {
	Sessions     SessionPinger
	RendererOK   func() bool
	RecordsPath  string
	DocumentPath string
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses for the status endpoint.
type Summary struct {
	Renderer Status `json:"renderer"`
	Sessions Status `json:"sessions"`
	Document Status `json:"document"`
	Records  Status `json:"records"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	return &Checker{
		sessions:    opts.Sessions,
		rendererOK:  opts.RendererOK,
		recordsPath: opts.RecordsPath,
		docPath:     opts.DocumentPath,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Renderer: c.checkRenderer(),
		Sessions: c.checkSessions(ctx),
		Document: c.checkDocument(),
		Records:  c.checkRecords(),
	}
}

func (c *Checker) checkRenderer() Status {
	if c.rendererOK == nil {
		return Status{OK: false, Message: "Probe not configured"}
	}
	if !c.rendererOK() {
		return Status{OK: false, Message: "No rasterization backend in this build"}
	}
	return Status{OK: true, Message: "Available"}
}

func (c *Checker) checkSessions(ctx context.Context) Status {
	if c.sessions == nil {
		return Status{OK: false, Message: "Store unavailable"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.sessions.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkDocument() Status {
	if c.docPath == "" {
		return Status{OK: false, Message: "Not configured"}
	}
	info, err := os.Stat(c.docPath)
	if err != nil {
		return Status{OK: false, Message: "File not found"}
	}
	if info.IsDir() {
		return Status{OK: false, Message: "Not a file"}
	}
	return Status{OK: true, Message: "Present"}
}

func (c *Checker) checkRecords() Status {
	if c.recordsPath == "" {
		return Status{OK: false, Message: "Not configured"}
	}
	recs, err := trace.Load(c.recordsPath)
	if err != nil {
		if errors.Is(err, trace.ErrNoRecords) {
			return Status{OK: false, Message: "Records file is empty"}
		}
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: fmt.Sprintf("%d records", len(recs))}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
