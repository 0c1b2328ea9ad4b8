package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem resolves SourceFromFS locations against files.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(l *Loader) { l.fs = files }
}

// WithHTTPClient enables URL sources using client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) { l.http = client }
}

// WithHTTPFallback enables URL sources with a default client and timeout.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		if l.http == nil {
			l.http = &http.Client{Timeout: timeout}
		}
	}
}

// Loader reads raw OpenAPI documents. URL sources are disabled unless an
// HTTP client is configured.
type Loader struct {
	fs   fs.FS
	http *http.Client
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load fetches the document at src.
func (l *Loader) Load(ctx context.Context, src Source) (Document, error) {
	if src == nil {
		return Document{}, errors.New("openapi: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case SourceKindFile:
		data, err = os.ReadFile(src.Location())
	case SourceKindFS:
		if l.fs == nil {
			return Document{}, errors.New("openapi: filesystem is not configured")
		}
		data, err = fs.ReadFile(l.fs, src.Location())
	case SourceKindURL:
		data, err = l.fetch(ctx, src.Location())
	default:
		err = fmt.Errorf("openapi: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return Document{}, fmt.Errorf("openapi: load %s: %w", src.Location(), err)
	}
	return NewDocument(src, data)
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if l.http == nil {
		return nil, errors.New("http support disabled")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
