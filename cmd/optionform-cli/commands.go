package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/handler"
	"github.com/goliatone/go-optionform/pkg/prompt"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string, stdout io.Writer) error
}

var commands = []command{
	{name: "render", usage: "write the settings page as HTML", run: runRender},
	{name: "export", usage: "write an export blob of the current values", run: runExport},
	{name: "import", usage: "apply an export blob", run: runImport},
	{name: "edit", usage: "edit option values interactively", run: runEdit},
	{name: "serve", usage: "serve the settings page over HTTP", run: runServe},
}

// setup parses the shared flags plus any command flags and opens the app.
func setup(ctx context.Context, name string, args []string, extra func(*flag.FlagSet)) (*app, error) {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	var shared flags
	shared.register(set)
	if extra != nil {
		extra(set)
	}
	if err := set.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := shared.resolve(set)
	if err != nil {
		return nil, err
	}
	return open(ctx, cfg)
}

func runRender(ctx context.Context, args []string, stdout io.Writer) error {
	var output, assetBase, action string
	a, err := setup(ctx, "render", args, func(set *flag.FlagSet) {
		set.StringVar(&output, "o", "", "output file (stdout if empty)")
		set.StringVar(&assetBase, "asset-base", "", "URL serving optionform.js/.css; assets are inlined when empty")
		set.StringVar(&action, "action", "", "form action URL")
	})
	if err != nil {
		return err
	}
	defer a.close()

	rc := form.NewRenderContext()
	rc.AssetBase = assetBase
	rc.Action = action
	return writeOutput(output, stdout, func(w io.Writer) error {
		return a.form.Render(ctx, w, rc, form.Result{})
	})
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	var output string
	a, err := setup(ctx, "export", args, func(set *flag.FlagSet) {
		set.StringVar(&output, "o", "", "output file (stdout if empty)")
	})
	if err != nil {
		return err
	}
	defer a.close()

	blob, err := a.form.Export(ctx)
	if err != nil {
		return err
	}
	return writeOutput(output, stdout, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, blob)
		return err
	})
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	var input string
	a, err := setup(ctx, "import", args, func(set *flag.FlagSet) {
		set.StringVar(&input, "in", "-", "blob file, - for stdin")
	})
	if err != nil {
		return err
	}
	defer a.close()

	var blob []byte
	if input == "-" {
		blob, err = io.ReadAll(os.Stdin)
	} else {
		blob, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	report, err := a.form.Import(ctx, string(blob))
	printReport(stdout, report)
	return err
}

func printReport(w io.Writer, report form.ImportReport) {
	fmt.Fprintf(w, "applied: %d, unchanged: %d, skipped: %d\n",
		len(report.Applied), len(report.Unchanged), len(report.Skipped))
	for _, name := range report.Applied {
		fmt.Fprintf(w, "  + %s\n", name)
	}
	for _, skip := range report.Skipped {
		fmt.Fprintf(w, "  ! %s (%s)\n", skip.Name, skip.Reason)
	}
}

func runEdit(ctx context.Context, args []string, _ io.Writer) error {
	var route string
	a, err := setup(ctx, "edit", args, func(set *flag.FlagSet) {
		set.StringVar(&route, "route", "", "only edit options under this route, e.g. general>mail")
	})
	if err != nil {
		return err
	}
	defer a.close()

	opts := []prompt.Option{prompt.WithLogger(a.logger)}
	if route != "" {
		opts = append(opts, prompt.WithRoute(strings.Split(route, form.RouteSeparator)...))
	}
	editor, err := prompt.NewEditor(a.form, prompt.NewSurveyDriver(), opts...)
	if err != nil {
		return err
	}
	_, err = editor.Edit(ctx)
	return err
}

func runServe(ctx context.Context, args []string, _ io.Writer) error {
	var addr, mount string
	var inline, watch bool
	a, err := setup(ctx, "serve", args, func(set *flag.FlagSet) {
		set.StringVar(&addr, "addr", "", "listen address")
		set.StringVar(&mount, "mount", "", "path the handler is mounted at")
		set.BoolVar(&inline, "inline-assets", false, "inline the client assets in the page")
		set.BoolVar(&watch, "watch", false, "reload the option file when it changes")
	})
	if err != nil {
		return err
	}
	defer a.close()

	server := a.cfg.Server
	if addr != "" {
		server.Addr = addr
	}
	if mount != "" {
		server.Mount = mount
	}
	server.InlineAssets = server.InlineAssets || inline
	server.Watch = server.Watch || watch

	if server.Watch && a.file != nil {
		if err := a.file.Watch(ctx, nil); err != nil {
			return err
		}
	}

	opts := []handler.Option{handler.WithLogger(a.logger), handler.WithMountPath(server.Mount)}
	if server.InlineAssets {
		opts = append(opts, handler.WithInlineAssets())
	}
	srv := &http.Server{
		Addr:              server.Addr,
		Handler:           handler.New(a.form, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	a.logger.Info("serving settings", "form", a.form.Slug(), "addr", server.Addr, "mount", server.Mount)

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func writeOutput(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
