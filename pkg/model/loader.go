package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a complete form definition.
type Document struct {
	Slug        string    `yaml:"slug"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Layout      Layout    `yaml:"layout"`
	Submit      Submit    `yaml:"submit"`
	Sections    []Section `yaml:"sections"`

	Source string `yaml:"-"`
}

// Layout selects how option values are laid out in storage. Nil fields are
// left for the form to back-fill.
type Layout struct {
	Serialize    *bool `yaml:"serialize" json:"serialize,omitempty"`
	SingleOption *bool `yaml:"single_option" json:"single_option,omitempty"`
}

// Submit configures client-side submission behavior.
type Submit struct {
	Auto  bool   `yaml:"auto"`
	Ajax  bool   `yaml:"ajax"`
	Label string `yaml:"label"`
}

// Section is a labelled node of the options outline.
type Section struct {
	Key         string       `yaml:"key"`
	Label       Label        `yaml:"label"`
	Description Label        `yaml:"description"`
	Sections    []Section    `yaml:"sections"`
	Options     []OptionSpec `yaml:"options"`
}

// OptionSpec is a leaf option: its descriptor plus storage layout overrides.
type OptionSpec struct {
	Descriptor `yaml:",inline"`
	Layout     `yaml:",inline"`
}

// LoadDocument parses a YAML or JSON document. Unknown properties are
// reported as ErrUnknownProperty.
func LoadDocument(data []byte, source string) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, fmt.Errorf("model: file %s is empty", source)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("model: file %s is empty", source)
		}
		return Document{}, fmt.Errorf("model: parse %s: %w", source, classifyYAMLError(err))
	}
	doc.Source = source

	if strings.TrimSpace(doc.Slug) == "" {
		return Document{}, fmt.Errorf("model: file %s: %w", source, &DescriptorError{Property: "slug", Reason: "required"})
	}
	if err := doc.validate(); err != nil {
		return Document{}, fmt.Errorf("model: file %s: %w", source, err)
	}
	return doc, nil
}

// LoadFS walks fsys and parses every .yaml, .yml and .json file as a
// Document. Documents are returned sorted by slug; duplicate slugs fail.
func LoadFS(fsys fs.FS) ([]Document, error) {
	if fsys == nil {
		return nil, nil
	}

	var docs []Document
	seen := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDocumentFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("model: read %s: %w", path, err)
		}
		doc, err := LoadDocument(data, path)
		if err != nil {
			return err
		}
		if previous, exists := seen[doc.Slug]; exists {
			return fmt.Errorf("model: duplicate form %q (files %s and %s)", doc.Slug, previous, path)
		}
		seen[doc.Slug] = path
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Slug < docs[j].Slug })
	return docs, nil
}

func (d Document) validate() error {
	for _, section := range d.Sections {
		if err := section.validate(""); err != nil {
			return err
		}
	}
	return nil
}

func (s Section) validate(prefix string) error {
	path := joinRoute(prefix, s.Key)
	if strings.TrimSpace(s.Key) == "" {
		return &DescriptorError{Key: prefix, Property: "key", Reason: "section key is required"}
	}
	keys := make(map[string]struct{})
	for _, child := range s.Sections {
		if _, dup := keys[child.Key]; dup {
			return &DescriptorError{Key: path, Property: child.Key, Reason: "duplicate key"}
		}
		keys[child.Key] = struct{}{}
		if err := child.validate(path); err != nil {
			return err
		}
	}
	for _, option := range s.Options {
		if strings.TrimSpace(option.Key) == "" {
			return &DescriptorError{Key: path, Property: "key", Reason: "option key is required"}
		}
		if _, dup := keys[option.Key]; dup {
			return &DescriptorError{Key: path, Property: option.Key, Reason: "duplicate key"}
		}
		keys[option.Key] = struct{}{}
		if err := option.Descriptor.Validate(); err != nil {
			return nestDescriptorError(path, err)
		}
	}
	return nil
}

func joinRoute(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
