package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyInput is returned when a required answer is left blank.
var ErrEmptyInput = errors.New("a value is required")

// Prompter asks questions on a terminal.
type Prompter struct {
	writer   io.Writer
	reader   *lineReader
	terminal *os.File
}

// NewPrompter creates a prompter reading from in and writing to out. When in
// is an interactive terminal, passwords are read without echo.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	p := &Prompter{
		reader: newLineReader(in),
		writer: out,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.terminal = f
	}
	return p
}

// Ask prints label and returns the answer, or def when the answer is blank.
func (p *Prompter) Ask(ctx context.Context, label, def string) (string, error) {
	prompt := label
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", label, def)
	}
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// AskRequired is Ask without a default that rejects blank answers.
func (p *Prompter) AskRequired(ctx context.Context, label string) (string, error) {
	answer, err := p.Ask(ctx, label, "")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), ErrEmptyInput)
	}
	return answer, nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.Ask(ctx, question+" (y/N)", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Password reads a secret. Terminal input is not echoed.
func (p *Prompter) Password(ctx context.Context, label string) (string, error) {
	if p.terminal == nil {
		return p.AskRequired(ctx, label)
	}

	if _, err := fmt.Fprint(p.writer, FormatPrompt(label)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	secret, err := term.ReadPassword(int(p.terminal.Fd()))
	_, _ = fmt.Fprintln(p.writer)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), ErrEmptyInput)
	}
	return string(secret), nil
}
