// cmd/specsmith/main.go
//
// Entry point for the specsmith CLI. Running without arguments launches
// the interactive hearing wizard; subcommands manage drafts and render
// artifacts from completed sessions without the TUI.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"specsmith/internal/catalog"
	"specsmith/internal/config"
	"specsmith/internal/draft"
	"specsmith/internal/logging"
	"specsmith/internal/output"
	"specsmith/internal/tui"
	"specsmith/internal/wizard"
)

var version = "dev"

var (
	stateDir string
	verbose  bool
)

// services holds everything a command needs, constructed once per run.
type services struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *draft.Store
	catalog   *catalog.Catalog
	generator *output.Generator
	closeKV   func() error
}

func (s *services) close() {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	if s.closeKV != nil {
		_ = s.closeKV()
	}
}

func setup() (*services, error) {
	cfg, err := config.Load(stateDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogsDir, verbose)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	var kv draft.KV
	closeKV := func() error { return nil }
	switch cfg.Prefs.Storage {
	case "sqlite":
		skv, err := draft.NewSQLiteKV(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		kv = skv
		closeKV = skv.Close
	default:
		fkv, err := draft.NewFileKV(cfg.DraftsDir)
		if err != nil {
			return nil, err
		}
		kv = fkv
	}

	return &services{
		cfg:       cfg,
		logger:    logger,
		store:     draft.NewStore(kv, logger),
		catalog:   cat,
		generator: output.NewGenerator(cat, logger),
		closeKV:   closeKV,
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "specsmith",
	Short: "Interactive requirements hearing wizard",
	Long: `specsmith walks a non-technical user through 15 hearing questions
(purpose, process, technology) and renders the answers into a
spec-generation command, a structured record and a Markdown document.

Drafts auto-save locally and expire after 24 hours. Run without
arguments to start or resume a hearing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard("")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "Resume a saved draft by session id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(args[0])
	},
}

func runWizard(resumeID string) error {
	svc, err := setup()
	if err != nil {
		return err
	}
	defer svc.close()

	app := tui.NewApp(tui.Deps{
		Config:    svc.cfg,
		Logger:    svc.logger,
		Catalog:   svc.catalog,
		Store:     svc.store,
		Generator: svc.generator,
	})
	if resumeID != "" {
		if err := app.Resume(resumeID); err != nil {
			return fmt.Errorf("resume %s: %w", resumeID, err)
		}
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run wizard: %w", err)
	}
	return nil
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved drafts",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unexpired drafts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup()
		if err != nil {
			return err
		}
		defer svc.close()
		drafts, err := svc.store.List()
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			fmt.Println("no drafts")
			return nil
		}
		fmt.Printf("%-38s %-6s %-10s %-20s %s\n", "SESSION", "STEP", "ANSWERED", "SAVED", "EXPIRES")
		for _, d := range drafts {
			fmt.Printf("%-38s %-6d %-10d %-20s %s\n",
				d.SessionID, d.CurrentStep, d.AnsweredCount,
				d.SavedAt.Local().Format("2006-01-02 15:04:05"),
				d.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var draftsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup()
		if err != nil {
			return err
		}
		defer svc.close()
		return svc.store.Delete(args[0])
	},
}

var draftsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove all expired drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup()
		if err != nil {
			return err
		}
		defer svc.close()
		purged, err := svc.store.PurgeExpired()
		if err != nil {
			return err
		}
		fmt.Printf("purged %d expired draft(s)\n", purged)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [session-id]",
	Short: "Render the output artifact from a saved draft",
	Long: `Finalizes the draft (all questions must validate) and prints the
command string to stdout. --json prints the full artifact instead, and
--save also writes the three files under the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		save, _ := cmd.Flags().GetBool("save")
		svc, err := setup()
		if err != nil {
			return err
		}
		defer svc.close()

		session, err := svc.store.Load(args[0])
		if err != nil {
			if errors.Is(err, draft.ErrNotFound) {
				return fmt.Errorf("draft %s not found or expired", args[0])
			}
			return err
		}
		machine, err := wizard.Restore(svc.catalog, session)
		if err != nil {
			return err
		}
		if result := machine.Complete(); !result.Completed {
			for id, errs := range result.Errors {
				for _, fe := range errs {
					fmt.Fprintf(os.Stderr, "%s: %s\n", id, fe.Code)
				}
			}
			return fmt.Errorf("draft %s does not validate", args[0])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), output.Budget+time.Second)
		defer cancel()
		artifact, err := svc.generator.Generate(ctx, machine.Snapshot())
		if err != nil {
			return err
		}
		if save {
			dir, err := output.NewExporter(svc.cfg.OutDir).Export(session.ID, artifact)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "artifact written to %s\n", dir)
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(artifact)
		}
		fmt.Println(artifact.SummaryText)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the specsmith version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("specsmith %s\n", version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "state directory (default $SPECSMITH_HOME or ~/.specsmith)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	generateCmd.Flags().Bool("json", false, "print the full artifact as JSON")
	generateCmd.Flags().Bool("save", false, "write the artifact files to the output directory")

	draftsCmd.AddCommand(draftsListCmd, draftsDeleteCmd, draftsPurgeCmd)
	rootCmd.AddCommand(resumeCmd, draftsCmd, generateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
