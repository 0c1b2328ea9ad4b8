// Package handler serves a settings form over HTTP with chi.
//
//	GET  /          render the form
//	POST /          submit (re-renders, or answers JSON to AJAX submits)
//	GET  /export    download the export blob, nonce in the query
//	POST /import    apply an export blob
//	GET  /values    resolved values as nested JSON
//	GET  /assets/*  browser runtime
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/logging"
	"github.com/goliatone/go-optionform/pkg/mask"
)

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(l logging.Logger) Option {
	return func(h *Handler) { h.logger = logging.OrNop(l) }
}

// WithMountPath serves every route under path. The handler expects the full
// request path, so mount it on a mux without stripping the prefix.
func WithMountPath(path string) Option {
	return func(h *Handler) { h.mount = strings.TrimRight(strings.TrimSpace(path), "/") }
}

// WithInlineAssets inlines the runtime into every page.
func WithInlineAssets() Option {
	return func(h *Handler) { h.inline = true }
}

// Handler exposes one form.
type Handler struct {
	form   *form.Form
	logger logging.Logger
	mount  string
	inline bool
	router chi.Router
}

var _ http.Handler = (*Handler)(nil)

func New(f *form.Form, opts ...Option) *Handler {
	h := &Handler{form: f, logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	if h.mount == "" {
		h.routes(r)
	} else {
		r.Route(h.mount, h.routes)
	}
	h.router = r
	return h
}

func (h *Handler) routes(r chi.Router) {
	r.Get("/", h.render)
	r.Post("/", h.submit)
	r.Get("/export", h.export)
	r.Post("/import", h.importBlob)
	r.Get("/values", h.values)
	r.Handle("/assets/*", http.StripPrefix(h.mount+"/assets/", http.FileServerFS(form.Assets())))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"form", h.form.Slug(),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (h *Handler) renderContext() *form.RenderContext {
	rc := form.NewRenderContext()
	if !h.inline {
		rc.AssetBase = h.mount + "/assets"
	}
	rc.Action = h.mount + "/"
	return rc
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, form.Result{}, nil)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, res form.Result, handleErr error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if handleErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	if err := h.form.Render(r.Context(), w, h.renderContext(), res, handleErr); err != nil {
		h.logger.Error("render failed", "form", h.form.Slug(), "error", err)
		if handleErr == nil {
			http.Error(w, "render failed", http.StatusInternalServerError)
		}
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	req, err := form.RequestFromHTTP(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.form.Handle(r.Context(), req)
	if isAjax(r) {
		h.submitJSON(w, res, err)
		return
	}
	h.page(w, r, res, err)
}

// SubmitResponse is the JSON answer to AJAX submits and imports.
type SubmitResponse struct {
	Ignored bool        `json:"ignored"`
	Saved   []string    `json:"saved"`
	Failed  []string    `json:"failed,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Import  *ImportJSON `json:"import,omitempty"`
}

type ImportJSON struct {
	Applied   []string    `json:"applied"`
	Unchanged []string    `json:"unchanged"`
	Skipped   []form.Skip `json:"skipped"`
}

func (h *Handler) submitJSON(w http.ResponseWriter, res form.Result, err error) {
	body := SubmitResponse{
		Ignored: res.Ignored,
		Saved:   append([]string{}, res.Saved...),
		Failed:  res.Failed,
		Message: res.Message,
	}
	if res.Import != nil {
		body.Import = &ImportJSON{
			Applied:   append([]string{}, res.Import.Applied...),
			Unchanged: append([]string{}, res.Import.Unchanged...),
			Skipped:   append([]form.Skip{}, res.Import.Skipped...),
		}
	}
	status := http.StatusOK
	switch {
	case res.Ignored:
		status = http.StatusForbidden
	case errors.Is(err, form.ErrBadBlob):
		body.Error = err.Error()
		status = http.StatusBadRequest
	case err != nil:
		body.Error = err.Error()
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, body)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if !h.form.VerifyNonce(r.URL.Query().Get(form.FieldNonce)) {
		http.Error(w, "invalid or expired nonce", http.StatusForbidden)
		return
	}
	blob, err := h.form.Export(r.Context())
	if err != nil {
		h.logger.Error("export failed", "form", h.form.Slug(), "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-settings.txt"`, h.form.Slug()))
	_, _ = w.Write([]byte(blob))
}

func (h *Handler) importBlob(w http.ResponseWriter, r *http.Request) {
	req, err := form.RequestFromHTTP(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Pairs = append(req.Pairs, mask.Pair{Name: form.FieldAction, Value: string(form.ActionImport)})
	res, err := h.form.Handle(r.Context(), req)
	h.submitJSON(w, res, err)
}

func (h *Handler) values(w http.ResponseWriter, r *http.Request) {
	values, err := h.form.Expand(r.Context())
	if err != nil {
		h.logger.Error("expand failed", "form", h.form.Slug(), "error", err)
		http.Error(w, "values unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func isAjax(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
