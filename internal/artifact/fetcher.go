package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Fetcher makes sure a model artifact is present on local disk.
type Fetcher struct {
	client  *http.Client
	gcsOpts []option.ClientOption
}

func NewFetcher(client *http.Client, gcsCredentialsFile string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{client: client}
	if gcsCredentialsFile != "" {
		f.gcsOpts = append(f.gcsOpts, option.WithCredentialsFile(gcsCredentialsFile))
	}
	return f
}

// Ensure downloads rawURL to dest unless dest already exists. An existing
// file is trusted as is.
func (f *Fetcher) Ensure(ctx context.Context, rawURL, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		log.Info().Str("path", dest).Msg("artifact present, skipping download")
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid artifact url: %w", err)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	log.Info().Str("url", redact(u)).Str("path", dest).Msg("downloading artifact")

	n, err := f.copy(ctx, u, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close temp file: %w", cerr)
	}
	if err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	log.Info().Str("path", dest).Int64("bytes", n).Msg("artifact downloaded")
	return nil
}

func (f *Fetcher) copy(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	switch u.Scheme {
	case "http", "https":
		return f.copyHTTP(ctx, u, w)
	case "gs":
		return f.copyGCS(ctx, u, w)
	case "file":
		return copyFile(u.Path, w)
	default:
		return 0, fmt.Errorf("unsupported artifact url scheme %q", u.Scheme)
	}
}

func (f *Fetcher) copyHTTP(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("failed to download artifact: unexpected status %s", resp.Status)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read artifact body: %w", err)
	}
	return n, nil
}

func (f *Fetcher) copyGCS(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	bucket, object := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return 0, fmt.Errorf("gs url must name a bucket and an object: %s", u)
	}

	client, err := storage.NewClient(ctx, f.gcsOpts...)
	if err != nil {
		return 0, fmt.Errorf("error initializing storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("error creating reader: %w", err)
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("error downloading artifact from storage: %w", err)
	}
	return n, nil
}

func copyFile(path string, w io.Writer) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("error opening file: %w", err)
	}
	defer src.Close()

	return io.Copy(w, src)
}

// redact drops the query string, which may carry access tokens.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}
