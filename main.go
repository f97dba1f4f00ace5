package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"flowchat/internal/archive"
	"flowchat/internal/backend"
	"flowchat/internal/config"
	"flowchat/internal/locale"
	"flowchat/internal/logging"
	"flowchat/internal/models"
	"flowchat/internal/ui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// run owns the log file for the whole program, so it is flushed and closed
// before main exits on any error.
func run(args []string) error {
	flags := flag.NewFlagSet("flowchat", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to config file (default ~/.flowchat/config.yaml)")
	backendURL := flags.String("backend", "", "reply backend URL, overrides config")
	history := flags.Bool("history", false, "browse archived sessions instead of starting a chat")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid -backend flag: %w", err)
		}
	}

	if err := logging.InitLogger(logging.Options{
		Path:       cfg.Logging.Path,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Close()

	clock := locale.FromEnvironment(cfg.Display.Locale)
	logging.Info("Using locale %s", clock.Tag())

	if *history {
		if err := runHistory(cfg, clock); err != nil {
			logging.Error("History browser failed: %v", err)
			return fmt.Errorf("error running history browser: %w", err)
		}
		return nil
	}

	if err := runChat(cfg, clock); err != nil {
		logging.Error("Chat failed: %v", err)
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func runChat(cfg *config.Config, clock locale.Clock) error {
	opts := ui.ConversationOptions{
		SendHistory: cfg.Backend.SendHistory,
		Clock:       clock,
		Markdown:    cfg.Display.Markdown,
	}

	if cfg.BackendEnabled() {
		opts.Responder = backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
		opts.BackendName = cfg.Backend.URL
		logging.Info("Replies from %s (timeout %s)", cfg.Backend.URL, cfg.Backend.Timeout)
	} else {
		logging.Info("No backend configured, messages stay local")
	}

	if cfg.Archive.Enabled {
		store, err := openArchive(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		session := models.NewSession(time.Now())
		if err := store.StartSession(context.Background(), session); err != nil {
			return fmt.Errorf("failed to start archive session: %w", err)
		}
		writer := archive.NewWriter(store, session.ID, 64)
		defer writer.Close()

		opts.Archive = writer
		logging.Info("Archiving session %s to %s", session.ID, cfg.Archive.Path)
	}

	shell := ui.NewShellModel(ui.NewConversationModel(opts, 80, 22))

	p := tea.NewProgram(shell, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func runHistory(cfg *config.Config, clock locale.Clock) error {
	store, err := openArchive(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	p := tea.NewProgram(ui.NewHistoryModel(store, clock, 80, 24), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func openArchive(path string) (*archive.BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	store, err := archive.NewBadgerStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return store, nil
}
