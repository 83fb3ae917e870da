package docsource

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCount returns the number of pages in the PDF referenced by ref.
// Remote refs are downloaded to a temp file that is removed before
// returning.
func PageCount(ctx context.Context, ref string) (int, error) {
	localPath, cleanup, err := Resolve(ctx, ref)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	n, err := api.PageCountFile(localPath)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// PageCountBytes returns the number of pages of an in-memory PDF.
func PageCountBytes(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}
