package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"visahunt-engine/internal/secrets"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSecretSetFromArgAndStdin(t *testing.T) {
	keyring.MockInit()

	out, err := execute(t, "", "secret", "set", secrets.SMTPPassword, "hunter2")
	require.NoError(t, err)
	assert.Contains(t, out, "stored smtp_password")

	got, err := secrets.Get(secrets.SMTPPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	_, err = execute(t, "tg-token\n", "secret", "set", secrets.TelegramToken)
	require.NoError(t, err)
	got, err = secrets.Get(secrets.TelegramToken)
	require.NoError(t, err)
	assert.Equal(t, "tg-token", got)
}

func TestSecretSetRejectsEmpty(t *testing.T) {
	keyring.MockInit()

	_, err := execute(t, "\n", "secret", "set", secrets.OpenAIKey)
	assert.Error(t, err)
}

func TestStatusOnFreshDataDir(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "", "status", "--data-dir", dir)
	require.NoError(t, err)
	upper := strings.ToUpper(out)
	assert.Contains(t, upper, "TITLE")
	assert.Contains(t, upper, "TOTAL")
	assert.FileExists(t, dir+"/config.yml")
}

func TestStatusRejectsUnknownFilter(t *testing.T) {
	_, err := execute(t, "", "status", "--data-dir", t.TempDir(), "--status", "maybe")
	assert.Error(t, err)
}

func TestScheduleRejectsBadCron(t *testing.T) {
	_, err := execute(t, "", "schedule", "--data-dir", t.TempDir(), "--cron", "every day", "--listen", "")
	assert.Error(t, err)
}
