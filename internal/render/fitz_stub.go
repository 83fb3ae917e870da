//go:build !cgo || nofitz

package render

// Stub backend for builds without the MuPDF bindings. Opening always
// fails and Available reports false, so callers fall back to
// placeholder images instead of crashing.
type stubBackend struct{}

var defaultBackend Backend = stubBackend{}

func (stubBackend) Available() bool {
	return false
}

func (stubBackend) Open(Source) (Document, error) {
	return nil, ErrBackendUnavailable
}
