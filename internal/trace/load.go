package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// Decode parses a JSON array of records read from r. The source name
// is only used in error messages.
func Decode(r io.Reader, source string) (Collection, error) {
	var recs Collection
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}
	return recs, nil
}

// Load reads a record collection from a JSON file on disk.
func Load(path string) (Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()

	recs, err := Decode(f, path)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", path).
		Int("records", len(recs)).
		Msg("loaded tracing records")

	return recs, nil
}
