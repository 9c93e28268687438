package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// setupDataDir points the configuration at a fresh data directory.
func setupDataDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	viper.Reset()
	viper.Set("data.dir", dir)
	viper.Set("display.currency", "USD")
	t.Cleanup(viper.Reset)

	return dir
}

// execute runs cmd with args, feeding input to its prompts.
func execute(t *testing.T, cmd *cobra.Command, input string, args ...string) (string, error) {
	t.Helper()

	if args == nil {
		args = []string{}
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// signupAda registers and logs in a test account.
func signupAda(t *testing.T) {
	t.Helper()

	_, err := execute(t, signupCmd(), "hunter22\nhunter22\n",
		"--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com")
	require.NoError(t, err)
}

func income() *cobra.Command     { return recordCmd(recordKinds[0]) }
func expense() *cobra.Command    { return recordCmd(recordKinds[1]) }
func investment() *cobra.Command { return recordCmd(recordKinds[2]) }
