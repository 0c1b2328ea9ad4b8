package openapi

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// SourceKind enumerates where a document can be loaded from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies an OpenAPI document.
type Source interface {
	Kind() SourceKind
	Location() string
}

type source struct {
	kind     SourceKind
	location string
}

func (s source) Kind() SourceKind  { return s.kind }
func (s source) Location() string { return s.location }

// SourceFromFile points at a document on disk.
func SourceFromFile(path string) Source {
	return source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS points at a document inside the loader's fs.FS.
func SourceFromFS(name string) Source {
	return source{kind: SourceKindFS, location: name}
}

// SourceFromURL points at a remote document. It fails on malformed URLs.
func SourceFromURL(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("openapi: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("openapi: invalid URL %q: %w", raw, err)
	}
	return source{kind: SourceKindURL, location: raw}, nil
}
