package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/logging"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/openapi"
	"github.com/goliatone/go-optionform/pkg/option"
	"github.com/goliatone/go-optionform/pkg/store"
)

// app is an opened form with its store.
type app struct {
	cfg    Config
	logger *logging.Slog
	form   *form.Form
	store  option.Store
	file   *store.File
	close  func() error
}

func open(ctx context.Context, cfg Config) (*app, error) {
	logger := logging.NewText(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	a := &app{cfg: cfg, logger: logger, close: func() error { return nil }}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	doc, err := loadDocument(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.Slug != "" {
		doc.Slug = cfg.Slug
	}

	opts := []form.Option{form.WithLogger(logger)}
	if cfg.Secret != "" {
		opts = append(opts, form.WithSecret([]byte(cfg.Secret)))
	}
	if cfg.Store.EnvPrefix != "" {
		opts = append(opts, form.WithOverrides(store.NewEnv(cfg.Store.EnvPrefix)))
	}
	a.form, err = form.NewFromDocument(doc, a.store, opts...)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open form %s: %w", doc.Slug, err)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg.Store
	switch strings.ToLower(cfg.Driver) {
	case "", "file":
		f, err := store.OpenFile(cfg.Path, store.WithFileLogger(a.logger))
		if err != nil {
			return err
		}
		a.store, a.file = f, f
	case "memory":
		a.store = store.NewMemory()
	case "sqlite":
		dsn := cfg.Path
		if dsn == "" {
			dsn = ":memory:"
		}
		s, err := store.OpenSQLite(ctx, dsn, store.WithTable(cfg.Table), store.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.store, a.close = s, s.Close
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	a.logger.Debug("store opened", "driver", cfg.Driver, "path", cfg.Path)
	return nil
}

func loadDocument(ctx context.Context, cfg Config) (model.Document, error) {
	if cfg.OpenAPI != "" {
		loader := openapi.NewLoader(openapi.WithHTTPFallback(30 * time.Second))
		src, err := openAPISource(cfg.OpenAPI)
		if err != nil {
			return model.Document{}, err
		}
		raw, err := loader.Load(ctx, src)
		if err != nil {
			return model.Document{}, err
		}
		return raw.Form(ctx, cfg.Component)
	}
	data, err := os.ReadFile(cfg.Form)
	if err != nil {
		return model.Document{}, fmt.Errorf("read form: %w", err)
	}
	return model.LoadDocument(data, cfg.Form)
}

func openAPISource(raw string) (openapi.Source, error) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return openapi.SourceFromURL(raw)
	}
	return openapi.SourceFromFile(raw), nil
}
