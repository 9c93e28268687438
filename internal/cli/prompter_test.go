package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_Ask(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   string
		want  string
	}{
		{name: "answer", input: "Groceries\n", want: "Groceries"},
		{name: "default on blank", input: "\n", def: "Other", want: "Other"},
		{name: "answer overrides default", input: " Rent \n", def: "Other", want: "Rent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			got, err := p.Ask(context.Background(), "Category", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Category")
		})
	}
}

func TestPrompter_AskRequired(t *testing.T) {
	p := NewPrompter(strings.NewReader("\n"), &bytes.Buffer{})
	_, err := p.AskRequired(context.Background(), "Email")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "maybe\n", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p := NewPrompter(strings.NewReader(tt.input), &bytes.Buffer{})
			got, err := p.Confirm(context.Background(), "Delete?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrompter_PasswordWithoutTerminal(t *testing.T) {
	p := NewPrompter(strings.NewReader("s3cret\n"), &bytes.Buffer{})
	got, err := p.Password(context.Background(), "Password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}

func TestPrompter_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPrompter(strings.NewReader("ignored\n"), &bytes.Buffer{})
	_, err := p.Ask(ctx, "Amount", "")
	assert.ErrorIs(t, err, ErrInputCancelled)
}
