package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/tvo/signaldesk/internal/alert"
	"github.com/tvo/signaldesk/internal/api"
	"github.com/tvo/signaldesk/internal/app"
	"github.com/tvo/signaldesk/internal/credential"
	"github.com/tvo/signaldesk/internal/host"
	"github.com/tvo/signaldesk/internal/logging"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
	appsync "github.com/tvo/signaldesk/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "signaldesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := model.DefaultConfigPath()
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if cfg.API.BaseURL == "" || cfg.API.ConsumerEmail == "" {
		return fmt.Errorf("api.base_url and api.consumer_email must be set in %s", cfgPath)
	}

	stateDir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	// The terminal belongs to Bubble Tea; logs go to a file.
	logFile, err := os.OpenFile(
		filepath.Join(stateDir, "signaldesk.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644,
	)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logging.Setup(logFile, cfg.LogLevel)

	token := os.Getenv("SIGNALDESK_TOKEN")
	if token == "" {
		token, err = credential.Get(credential.TokenKey)
		if err != nil || token == "" {
			token, err = promptForToken()
			if err != nil {
				return err
			}
			if err := credential.Set(credential.TokenKey, token); err != nil {
				slog.Warn("storing api token in keyring", "error", err)
			}
		}
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	client := api.NewClient(cfg.API.BaseURL, token)

	bridge := host.NewDesktop(stateDir)
	// Requested once at startup; emission degrades silently if denied.
	bridge.RequestPermission()

	engine := alert.NewEngine(s, bridge, client, alert.SystemClock(), alert.Config{
		ConsumerEmail:         cfg.API.ConsumerEmail,
		NotificationsEnabled:  cfg.Alert.NotificationsEnabled,
		DraftAutosaveInterval: time.Duration(cfg.Alert.DraftAutosaveSec) * time.Second,
	})

	poller := appsync.New(s, client, cfg.API.ConsumerEmail,
		time.Duration(cfg.API.PollIntervalSec)*time.Second)

	program := tea.NewProgram(
		app.New(s, engine, poller),
		tea.WithAltScreen(),
	)

	_, runErr := program.Run()

	// The in-app quit path already stops these; repeating is harmless
	// and covers abnormal program exits, which must never leave the
	// host pinned always-on-top.
	poller.Stop()
	engine.Stop()

	return runErr
}

// promptForToken asks for the backend API token on first run, before
// the main program takes over the terminal.
func promptForToken() (string, error) {
	var token string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend API token").
				Description("Stored in the system keyring for future runs.").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a token is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("reading api token: %w", err)
	}
	return strings.TrimSpace(token), nil
}
