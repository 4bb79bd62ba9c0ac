package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/cascade/internal/app"
	"github.com/ternarybob/cascade/internal/common"
)

var (
	// Command-line flags
	configFiles []string // later files override earlier ones
	passkeyFlag string
	baseURLFlag string
	serveWSFlag bool

	// Global state
	config      *common.Config
	logger      arbor.ILogger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "cascade",
	Short: "Set dataset, job and task status and propagate it down the hierarchy",
	Long: `Cascade changes the status of datasets, jobs and tasks on the remote job/task
service and pushes the derived status to their children in bulk.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&passkeyFlag, "passkey", "", "Service passkey (overrides CASCADE_PASSKEY)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Service base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&serveWSFlag, "serve-ws", false, "Serve progress over WebSocket while the command runs")

	rootCmd.AddCommand(datasetCmd, jobsCmd, tasksCmd, logsCmd, countsCmd, versionCmd)
}

// setup runs the startup sequence (REQUIRED ORDER):
// config files -> env -> CLI overrides -> validate -> logger -> banner -> app
func setup(cmd *cobra.Command, args []string) error {
	if len(configFiles) == 0 {
		if _, err := os.Stat("cascade.toml"); err == nil {
			configFiles = append(configFiles, "cascade.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, baseURLFlag, passkeyFlag, serveWSFlag)

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.Version)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("base_url", config.Service.BaseURL).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration (sanitized)")

	if config.Passkey == "" {
		return errors.New("passkey is required (--passkey or CASCADE_PASSKEY)")
	}

	application, err = app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if application == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a := application
	application = nil
	return a.Close(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// PersistentPostRunE is skipped when the command fails
		teardown(rootCmd, nil)
		os.Exit(1)
	}
}
