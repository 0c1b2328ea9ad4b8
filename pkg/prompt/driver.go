package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig configures a single line prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig configures a single or multi-select prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int // multi-select only; indices into Options
	Help         string
	PageSize     int
}

type TextAreaConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// Driver abstracts the terminal so the editor can be tested with scripted
// answers.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

// SurveyDriver prompts on a terminal with survey.
type SurveyDriver struct {
	in  terminal.FileReader
	out terminal.FileWriter
	err io.Writer
}

var _ Driver = (*SurveyDriver)(nil)

// NewSurveyDriver prompts on the process stdio.
func NewSurveyDriver() *SurveyDriver {
	return &SurveyDriver{in: os.Stdin, out: os.Stdout, err: os.Stderr}
}

// NewSurveyDriverWithStdio prompts on the given streams.
func NewSurveyDriverWithStdio(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) *SurveyDriver {
	return &SurveyDriver{in: in, out: out, err: errOut}
}

func (d *SurveyDriver) ask(p survey.Prompt, out any, opts ...survey.AskOpt) error {
	opts = append(opts, survey.WithStdio(d.in, d.out, d.err))
	if err := survey.AskOne(p, out, opts...); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return ErrAborted
		}
		return err
	}
	return nil
}

func (d *SurveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(stringValidator(cfg.Validator)))
	}
	if err := d.ask(prompt, &out, opts...); err != nil {
		return "", err
	}
	return out, nil
}

func (d *SurveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	prompt := &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := d.ask(prompt, &out); err != nil {
		return false, err
	}
	return out, nil
}

func (d *SurveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out string
	prompt := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		prompt.Default = cfg.Options[cfg.DefaultIndex]
	}
	if err := d.ask(prompt, &out); err != nil {
		return 0, err
	}
	return indexOf(cfg.Options, out), nil
}

func (d *SurveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	prompt := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if len(cfg.Defaults) > 0 {
		prompt.Default = defaultsFromIndices(cfg.Options, cfg.Defaults)
	}
	if err := d.ask(prompt, &out); err != nil {
		return nil, err
	}
	return indicesOf(cfg.Options, out), nil
}

func (d *SurveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Multiline{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(stringValidator(cfg.Validator)))
	}
	if err := d.ask(prompt, &out, opts...); err != nil {
		return "", err
	}
	return out, nil
}

func (d *SurveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// stringValidator adapts a string check to survey's any-typed validator.
func stringValidator(fn func(string) error) survey.Validator {
	return func(ans any) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("expected text, got %T", ans)
		}
		return fn(s)
	}
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}

func indicesOf(options, values []string) []int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	var out []int
	for i, option := range options {
		if _, ok := seen[option]; ok {
			out = append(out, i)
		}
	}
	return out
}

func defaultsFromIndices(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}
