package docsource

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupTemps removes leftover download temp files (tvdl-*.pdf,
// tvs3-*.pdf) older than the given age. Normally Resolve's cleanup
// func removes them immediately; this sweeps up after crashes.
func CleanupTemps(maxAge time.Duration) {
	cleanupTempsIn(os.TempDir(), maxAge)
}

func cleanupTempsIn(dir string, maxAge time.Duration) {
	now := time.Now()
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		name := info.Name()
		if !strings.HasPrefix(name, "tvdl-") && !strings.HasPrefix(name, "tvs3-") {
			return nil
		}
		if now.Sub(info.ModTime()) >= maxAge {
			_ = os.Remove(path)
		}
		return nil
	})
}
