package docsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Resolve turns a document reference into a local filesystem path.
// Supported forms:
//   - absolute/relative filesystem paths and file://path
//   - http(s):// URLs (downloaded to temp)
//   - s3://bucket/key (downloaded to temp via AWS SDK v2)
//
// An optional #page fragment is stripped first. The returned cleanup
// func removes any temp file and must be called once the path is no
// longer needed; for local refs it is a no-op.
func Resolve(ctx context.Context, ref string) (string, func(), error) {
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}

	noop := func() {}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		path, err := downloadS3ToTemp(ctx, ref)
		if err != nil {
			return "", noop, err
		}
		return path, func() { _ = os.Remove(path) }, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		path, err := downloadHTTPToTemp(ctx, ref)
		if err != nil {
			return "", noop, err
		}
		return path, func() { _ = os.Remove(path) }, nil
	case strings.HasPrefix(ref, "file://"):
		return strings.TrimPrefix(ref, "file://"), noop, nil
	default:
		// treat as filesystem path
		return ref, noop, nil
	}
}

func downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "tvdl-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func downloadS3ToTemp(ctx context.Context, s3url string) (string, error) {
	// s3://bucket/key
	path := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 {
		return "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	bucket := path[:slash]
	key := path[slash+1:]

	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	cli := s3.NewFromConfig(cfg)

	out, err := cli.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	// Keep the .pdf extension, page counting expects it.
	f, err := os.CreateTemp("", "tvs3-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}

	log.Info().
		Str("bucket", bucket).
		Str("key", key).
		Str("file", filepath.Base(f.Name())).
		Msg("downloaded s3 document to temp")

	return f.Name(), nil
}
