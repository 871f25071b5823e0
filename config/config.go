package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Config captures all options required to run the sync pipeline. Flags win
// over environment variables; a .env file in the working directory is loaded
// first so local deployments can keep secrets out of the command line.
type Config struct {
	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	InsecureSkipVerify bool
	Mailbox            string

	MboxPath string

	Senders        []string
	LimitPerSender int
	IncludeSubject []string
	IncludeBody    []string
	ExcludeSubject []string
	ExcludeBody    []string

	SpreadsheetID   string
	SheetName       string
	CredentialsFile string

	StateDir     string
	DryRun       bool
	PollInterval time.Duration
	LogLevel     string
	LogDir       string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultStateDir, err := defaultStateDir()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	flags.String("imap-host", "imap.gmail.com", "IMAP server hostname")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username (falls back to EMAIL_USER env var)")
	flags.String("imap-pass", "", "IMAP password (falls back to EMAIL_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("imap-mailbox", "INBOX", "Mailbox to read bank notifications from")
	flags.String("mbox", "", "Read messages from a local .mbox archive instead of IMAP")
	flags.StringArray("sender", nil, "Bank sender address to process (repeatable; falls back to BANK_SENDERS env var, comma separated)")
	flags.Int("limit-per-sender", 10, "Most recent messages fetched per sender each cycle")
	flags.StringArray("include-subject", nil, "Regex allow-list applied to subjects (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-subject", nil, "Regex block-list applied to subjects (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to bodies (mutually exclusive with include flags)")
	flags.String("spreadsheet-id", "", "Target spreadsheet id (falls back to SPREADSHEET_ID env var)")
	flags.String("sheet-name", "", "Sheet tab receiving the rows (falls back to SHEET_NAME env var, default Sheet1)")
	flags.String("credentials", "", "Service account credentials file (falls back to GOOGLE_APPLICATION_CREDENTIALS env var)")
	flags.String("state-dir", defaultStateDir, "Directory for the processed-id cache")
	flags.Bool("dry-run", false, "Extract and report without appending to the sheet")
	flags.Duration("poll-interval", 0, "Re-run the cycle at this interval (0 runs once)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for timestamped log files (default stdout only)")

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with
// environment fallbacks and validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	flags := cmd.Flags()

	imapHost, err := flags.GetString("imap-host")
	if err != nil {
		return Config{}, err
	}
	imapPort, err := flags.GetInt("imap-port")
	if err != nil {
		return Config{}, err
	}
	imapUser, err := flags.GetString("imap-user")
	if err != nil {
		return Config{}, err
	}
	imapPass, err := flags.GetString("imap-pass")
	if err != nil {
		return Config{}, err
	}
	useTLS, err := flags.GetBool("use-tls")
	if err != nil {
		return Config{}, err
	}
	insecureSkipVerify, err := flags.GetBool("insecure-skip-verify")
	if err != nil {
		return Config{}, err
	}
	mailbox, err := flags.GetString("imap-mailbox")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	senders, err := flags.GetStringArray("sender")
	if err != nil {
		return Config{}, err
	}
	limitPerSender, err := flags.GetInt("limit-per-sender")
	if err != nil {
		return Config{}, err
	}
	includeSubject, err := flags.GetStringArray("include-subject")
	if err != nil {
		return Config{}, err
	}
	includeBody, err := flags.GetStringArray("include-body")
	if err != nil {
		return Config{}, err
	}
	excludeSubject, err := flags.GetStringArray("exclude-subject")
	if err != nil {
		return Config{}, err
	}
	excludeBody, err := flags.GetStringArray("exclude-body")
	if err != nil {
		return Config{}, err
	}
	spreadsheetID, err := flags.GetString("spreadsheet-id")
	if err != nil {
		return Config{}, err
	}
	sheetName, err := flags.GetString("sheet-name")
	if err != nil {
		return Config{}, err
	}
	credentialsFile, err := flags.GetString("credentials")
	if err != nil {
		return Config{}, err
	}
	stateDir, err := flags.GetString("state-dir")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := flags.GetDuration("poll-interval")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	if imapUser == "" {
		imapUser = os.Getenv("EMAIL_USER")
	}
	if imapPass == "" {
		imapPass = os.Getenv("EMAIL_PASS")
	}
	if len(senders) == 0 {
		senders = splitList(os.Getenv("BANK_SENDERS"))
	}
	if spreadsheetID == "" {
		spreadsheetID = os.Getenv("SPREADSHEET_ID")
	}
	if sheetName == "" {
		sheetName = os.Getenv("SHEET_NAME")
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if credentialsFile == "" {
		credentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	if stateDir == "" {
		stateDir, err = defaultStateDir()
		if err != nil {
			return Config{}, err
		}
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		IMAPHost:           imapHost,
		IMAPPort:           imapPort,
		IMAPUser:           imapUser,
		IMAPPass:           imapPass,
		UseTLS:             useTLS,
		InsecureSkipVerify: insecureSkipVerify,
		Mailbox:            mailbox,
		MboxPath:           mboxPath,
		Senders:            senders,
		LimitPerSender:     limitPerSender,
		IncludeSubject:     includeSubject,
		IncludeBody:        includeBody,
		ExcludeSubject:     excludeSubject,
		ExcludeBody:        excludeBody,
		SpreadsheetID:      spreadsheetID,
		SheetName:          sheetName,
		CredentialsFile:    credentialsFile,
		StateDir:           filepath.Clean(stateDir),
		DryRun:             dryRun,
		PollInterval:       pollInterval,
		LogLevel:           logLevel,
		LogDir:             logDir,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.MboxPath == "" {
		if cfg.IMAPHost == "" {
			return fmt.Errorf("--imap-host is required")
		}
		if cfg.IMAPUser == "" {
			return fmt.Errorf("IMAP user must be provided via --imap-user or EMAIL_USER env var")
		}
		if cfg.IMAPPass == "" {
			return fmt.Errorf("IMAP password must be provided via --imap-pass or EMAIL_PASS env var")
		}
		if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
			return fmt.Errorf("--imap-port must be between 1 and 65535")
		}
		if len(cfg.Senders) == 0 {
			return fmt.Errorf("at least one bank sender is required via --sender or BANK_SENDERS env var")
		}
	} else if cfg.PollInterval > 0 {
		return fmt.Errorf("--poll-interval only applies to the IMAP source")
	}

	if !cfg.DryRun {
		if cfg.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet id must be provided via --spreadsheet-id or SPREADSHEET_ID env var")
		}
		if cfg.CredentialsFile == "" {
			return fmt.Errorf("credentials file must be provided via --credentials or GOOGLE_APPLICATION_CREDENTIALS env var")
		}
	}

	if cfg.LimitPerSender <= 0 {
		return fmt.Errorf("--limit-per-sender must be positive")
	}

	includeActive := len(cfg.IncludeSubject) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeSubject) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bankmail-to-sheets", "state"), nil
}
