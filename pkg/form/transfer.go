package form

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// ErrBadBlob is returned when an import blob cannot be decoded.
var ErrBadBlob = errors.New("form: invalid import blob")

// Skip reasons reported by Import.
const (
	SkipUnknown    = "unknown option"
	SkipChanged    = "descriptor changed"
	SkipMalformed  = "malformed entry"
	SkipOverridden = "constant override"
)

// Skip is an import entry that was not applied.
type Skip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportReport lists what an import did, per option name.
type ImportReport struct {
	Applied   []string
	Unchanged []string
	Skipped   []Skip
}

// Export encodes every option value with the fingerprint of its descriptor:
// base64 of a JSON object name -> [hash, value], in outline order.
func (f *Form) Export(ctx context.Context) (string, error) {
	entries := mask.NewMap()
	for _, leaf := range f.leaves {
		opt := leaf.Option
		hash, err := opt.Fingerprint()
		if err != nil {
			return "", fmt.Errorf("form: export %s: %w", opt.Name(), err)
		}
		value, err := opt.Value(ctx)
		if err != nil {
			return "", fmt.Errorf("form: export %s: %w", opt.Name(), err)
		}
		entries.Set(opt.Name(), mask.List(mask.String(hash), value))
	}
	data, err := mask.FromMap(entries).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("form: export: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Import applies an Export blob. Entries for unknown options, or whose hash
// no longer matches the option's descriptor, are skipped and reported.
func (f *Form) Import(ctx context.Context, blob string) (ImportReport, error) {
	var report ImportReport
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrBadBlob, err)
	}
	var doc mask.Value
	if err := doc.UnmarshalJSON(data); err != nil {
		return report, fmt.Errorf("%w: %v", ErrBadBlob, err)
	}
	if doc.Kind() != mask.KindMap {
		return report, fmt.Errorf("%w: expected an object, got %s", ErrBadBlob, doc.Kind())
	}

	var errs []error
	for _, entry := range doc.Entries() {
		opt, ok := f.Lookup(entry.Key)
		if !ok {
			report.Skipped = append(report.Skipped, Skip{Name: entry.Key, Reason: SkipUnknown})
			continue
		}
		hash, value, ok := splitEntry(entry.Value)
		if !ok {
			report.Skipped = append(report.Skipped, Skip{Name: entry.Key, Reason: SkipMalformed})
			continue
		}
		current, err := opt.Fingerprint()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if hash != current {
			report.Skipped = append(report.Skipped, Skip{Name: entry.Key, Reason: SkipChanged})
			continue
		}
		if opt.Overridden() {
			report.Skipped = append(report.Skipped, Skip{Name: entry.Key, Reason: SkipOverridden})
			continue
		}
		existing, err := opt.Value(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if existing.Equal(value) {
			report.Unchanged = append(report.Unchanged, entry.Key)
			continue
		}
		changed, err := opt.SetValue(ctx, value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			report.Applied = append(report.Applied, entry.Key)
		} else {
			report.Unchanged = append(report.Unchanged, entry.Key)
		}
	}
	f.logger.Info("settings imported", "form", f.slug,
		"applied", len(report.Applied), "unchanged", len(report.Unchanged), "skipped", len(report.Skipped))
	return report, errors.Join(errs...)
}

func splitEntry(v mask.Value) (string, mask.Value, bool) {
	if v.Kind() != mask.KindList || v.Len() != 2 {
		return "", mask.Null(), false
	}
	first, _ := v.Index(0)
	hash, ok := first.Str()
	if !ok {
		return "", mask.Null(), false
	}
	value, _ := v.Index(1)
	return hash, value, true
}
