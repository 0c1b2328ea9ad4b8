package form

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// Reserved submission fields. They never collide with option names because
// options submit under the slug.
const (
	FieldNonce  = "_optionform_nonce"
	FieldAction = "_optionform_action"
	FieldImport = "_optionform_import"
)

// maxFormMemory bounds multipart parsing of import uploads.
const maxFormMemory = 8 << 20

// SavedMessage is the notice shown after a successful save.
const SavedMessage = "Settings saved!"

// Action is what a submission asks the form to do.
type Action string

const (
	ActionSave   Action = "save"
	ActionImport Action = "import"
	ActionExport Action = "export"
)

// Request is a decoded submission: the form pairs in wire order.
type Request struct {
	Pairs []mask.Pair
}

// RequestFromHTTP reads the ordered pairs of r.
func RequestFromHTTP(r *http.Request) (Request, error) {
	pairs, err := mask.RequestPairs(r, maxFormMemory)
	if err != nil {
		return Request{}, fmt.Errorf("form: read request: %w", err)
	}
	return Request{Pairs: pairs}, nil
}

// Field returns the last submitted value of a plain field name.
func (r Request) Field(name string) (string, bool) {
	for idx := len(r.Pairs) - 1; idx >= 0; idx-- {
		if r.Pairs[idx].Name == name {
			return r.Pairs[idx].Value, true
		}
	}
	return "", false
}

// Result reports what Handle did. The zero Result means nothing was
// submitted.
type Result struct {
	Submitted bool
	// Ignored is set when the nonce was missing, forged or expired.
	Ignored bool
	Action  Action
	Saved   []string
	Failed  []string
	Message string
	Import  *ImportReport
	Export  string
}

// Changed reports whether any option was written.
func (r Result) Changed() bool { return len(r.Saved) > 0 }

// Handle processes a submission. A bad nonce is not an error: the result
// is marked Ignored and nothing is written. Storage failures are collected
// per option and returned joined.
func (f *Form) Handle(ctx context.Context, req Request) (Result, error) {
	if len(req.Pairs) == 0 {
		return Result{}, nil
	}
	res := Result{Submitted: true, Action: ActionSave}
	if raw, ok := req.Field(FieldAction); ok && strings.TrimSpace(raw) != "" {
		res.Action = Action(strings.ToLower(strings.TrimSpace(raw)))
	}

	nonce, _ := req.Field(FieldNonce)
	if !f.VerifyNonce(nonce) {
		f.logger.Warn("submission ignored", "form", f.slug, "reason", "invalid nonce")
		res.Ignored = true
		return res, nil
	}

	var err error
	switch res.Action {
	case ActionSave:
		err = f.save(ctx, req, &res)
	case ActionImport:
		blob, _ := req.Field(FieldImport)
		var report ImportReport
		report, err = f.Import(ctx, blob)
		res.Import = &report
		res.Saved = append(res.Saved, report.Applied...)
	case ActionExport:
		res.Export, err = f.Export(ctx)
		return res, err
	default:
		return res, fmt.Errorf("form: unknown action %q", res.Action)
	}

	if res.Changed() {
		res.Message = SavedMessage
		if hookErr := f.afterSaved(ctx, res); hookErr != nil {
			err = errors.Join(err, hookErr)
		}
	}
	return res, err
}

func (f *Form) save(ctx context.Context, req Request, res *Result) error {
	submitted, found := mask.DecodePairs(req.Pairs, f.slug)
	if !found {
		return nil
	}
	return f.apply(ctx, submitted, res)
}

// Apply writes values, a map of option name to value, without a nonce
// check. Post-save callbacks and events run as for a submission.
func (f *Form) Apply(ctx context.Context, values mask.Value) (Result, error) {
	res := Result{Submitted: true, Action: ActionSave}
	err := f.apply(ctx, values, &res)
	if res.Changed() {
		res.Message = SavedMessage
		if hookErr := f.afterSaved(ctx, res); hookErr != nil {
			err = errors.Join(err, hookErr)
		}
	}
	return res, err
}

func (f *Form) apply(ctx context.Context, values mask.Value, res *Result) error {
	var errs []error
	for _, leaf := range f.leaves {
		opt := leaf.Option
		if opt.Parent() != f.slug {
			continue
		}
		value, ok := values.Lookup(opt.Name())
		if !ok {
			continue
		}
		changed, err := opt.SetValue(ctx, value)
		if err != nil {
			res.Failed = append(res.Failed, opt.Name())
			errs = append(errs, err)
			f.logger.Error("option save failed", "form", f.slug, "option", opt.Name(), "error", err)
			continue
		}
		if changed {
			res.Saved = append(res.Saved, opt.Name())
		}
	}
	f.logger.Info("settings saved", "form", f.slug, "saved", len(res.Saved), "failed", len(res.Failed))
	return errors.Join(errs...)
}

func (f *Form) afterSaved(ctx context.Context, res Result) error {
	var errs []error
	for _, fn := range f.afterSave {
		if err := fn(ctx, f, res); err != nil {
			errs = append(errs, fmt.Errorf("form: after save: %w", err))
		}
	}
	if err := f.emitSaved(ctx, res); err != nil {
		// A failed notification does not undo the save.
		f.logger.Warn("settings event not delivered", "form", f.slug, "error", err)
	}
	return errors.Join(errs...)
}

// Nonce issues a token accepted by this form until the nonce TTL elapses.
func (f *Form) Nonce() string {
	return f.nonceAt(f.now())
}

func (f *Form) nonceAt(at time.Time) string {
	stamp := strconv.FormatInt(at.Unix(), 10)
	return stamp + "." + f.sign(stamp)
}

func (f *Form) sign(stamp string) string {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte(f.slug))
	mac.Write([]byte{'|'})
	mac.Write([]byte(stamp))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyNonce checks the signature and age of a token issued by Nonce.
func (f *Form) VerifyNonce(nonce string) bool {
	stamp, sig, ok := strings.Cut(strings.TrimSpace(nonce), ".")
	if !ok || stamp == "" || sig == "" {
		return false
	}
	unix, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return false
	}
	if !hmac.Equal([]byte(sig), []byte(f.sign(stamp))) {
		return false
	}
	age := f.now().Sub(time.Unix(unix, 0))
	return age >= -time.Minute && age <= f.nonceTTL
}
