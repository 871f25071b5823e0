package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, RegisterFlags(cmd))
	return cmd
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"EMAIL_USER", "EMAIL_PASS", "BANK_SENDERS", "SPREADSHEET_ID", "SHEET_NAME", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigMboxDryRun(t *testing.T) {
	clearEnv(t)
	cmd := newTestCommand(t)
	require.NoError(t, cmd.Flags().Set("mbox", "export.mbox"))
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "export.mbox", cfg.MboxPath)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "Sheet1", cfg.SheetName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLoadConfigEnvFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMAIL_USER", "user@example.com")
	t.Setenv("EMAIL_PASS", "secret")
	t.Setenv("BANK_SENDERS", "alerts@banco.com.py, avisos@otro.com")
	t.Setenv("SPREADSHEET_ID", "sheet-123")
	t.Setenv("SHEET_NAME", "Movimientos")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "creds.json")

	cfg, err := LoadConfig(newTestCommand(t))
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", cfg.IMAPUser)
	assert.Equal(t, "secret", cfg.IMAPPass)
	assert.Equal(t, []string{"alerts@banco.com.py", "avisos@otro.com"}, cfg.Senders)
	assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
	assert.Equal(t, "Movimientos", cfg.SheetName)
	assert.Equal(t, "creds.json", cfg.CredentialsFile)
}

func TestLoadConfigFlagsWinOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMAIL_USER", "env@example.com")
	t.Setenv("SHEET_NAME", "EnvSheet")

	cmd := newTestCommand(t)
	require.NoError(t, cmd.Flags().Set("imap-user", "flag@example.com"))
	require.NoError(t, cmd.Flags().Set("imap-pass", "secret"))
	require.NoError(t, cmd.Flags().Set("sender", "alerts@banco.com.py"))
	require.NoError(t, cmd.Flags().Set("sheet-name", "FlagSheet"))
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "flag@example.com", cfg.IMAPUser)
	assert.Equal(t, "FlagSheet", cfg.SheetName)
}

func TestLoadConfigNormalizesWarningLevel(t *testing.T) {
	clearEnv(t)
	cmd := newTestCommand(t)
	require.NoError(t, cmd.Flags().Set("mbox", "export.mbox"))
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))
	require.NoError(t, cmd.Flags().Set("log-level", "WARNING"))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidateConfig(t *testing.T) {
	base := Config{
		IMAPHost:       "imap.gmail.com",
		IMAPPort:       993,
		IMAPUser:       "user@example.com",
		IMAPPass:       "secret",
		Senders:        []string{"alerts@banco.com.py"},
		LimitPerSender: 10,
		DryRun:         true,
		LogLevel:       "info",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid imap dry run", mutate: func(*Config) {}},
		{
			name: "missing imap user",
			mutate: func(c *Config) {
				c.IMAPUser = ""
			},
			wantErr: true,
		},
		{
			name: "missing imap password",
			mutate: func(c *Config) {
				c.IMAPPass = ""
			},
			wantErr: true,
		},
		{
			name: "port out of range",
			mutate: func(c *Config) {
				c.IMAPPort = 70000
			},
			wantErr: true,
		},
		{
			name: "no senders for imap source",
			mutate: func(c *Config) {
				c.Senders = nil
			},
			wantErr: true,
		},
		{
			name: "mbox source needs no imap credentials",
			mutate: func(c *Config) {
				c.MboxPath = "export.mbox"
				c.IMAPUser = ""
				c.IMAPPass = ""
				c.Senders = nil
			},
		},
		{
			name: "poll interval rejected for mbox source",
			mutate: func(c *Config) {
				c.MboxPath = "export.mbox"
				c.PollInterval = time.Minute
			},
			wantErr: true,
		},
		{
			name: "sheet target required without dry run",
			mutate: func(c *Config) {
				c.DryRun = false
			},
			wantErr: true,
		},
		{
			name: "sheet target satisfied",
			mutate: func(c *Config) {
				c.DryRun = false
				c.SpreadsheetID = "sheet-123"
				c.CredentialsFile = "creds.json"
			},
		},
		{
			name: "non positive limit",
			mutate: func(c *Config) {
				c.LimitPerSender = 0
			},
			wantErr: true,
		},
		{
			name: "include and exclude are mutually exclusive",
			mutate: func(c *Config) {
				c.IncludeSubject = []string{"aviso"}
				c.ExcludeBody = []string{"promo"}
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.LogLevel = "verbose"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a@b", "c@d"}, splitList("a@b, c@d"))
	assert.Equal(t, []string{"a@b"}, splitList("a@b,,"))
	assert.Nil(t, splitList(""))
}
