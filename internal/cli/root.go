package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/turtacn/nightowl/internal/config"
	"github.com/turtacn/nightowl/internal/orchestrator"
	"github.com/turtacn/nightowl/internal/status"
	"github.com/turtacn/nightowl/pkg/consts"
	"github.com/turtacn/nightowl/pkg/logger"
)

var overrides config.Overrides

var rootCmd = &cobra.Command{
	Use:           "nightowl",
	Short:         "nightowl: stops an idle game server and powers the host off",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStart,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the idle supervisor (default when no subcommand is given)",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of a running supervisor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(cmd.Flags(), &overrides)
		if err != nil {
			return err
		}
		path := cfg.StatusSocketPath()
		if path == "" {
			return fmt.Errorf("status socket is disabled")
		}
		snap, err := status.Query(path, consts.StatusDialTimeout)
		if err != nil {
			return err
		}
		return printSnapshot(cmd.OutOrStdout(), snap)
	},
}

func runStart(cmd *cobra.Command, args []string) error {
	// 1. Load Config
	cfg, err := config.Resolve(cmd.Flags(), &overrides)
	if err != nil {
		return err
	}

	// 2. Init Logger
	logger.InitLogger(cfg.Observability.LogLevel, os.Stderr)
	logger.Log.Info("Booting nightowl", "addr", cfg.Addr(), "log_file", cfg.LogFile,
		"interval", cfg.Interval().String(), "threshold", cfg.IdleThreshold())

	// 3. Start Engine
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return orchestrator.NewEngine(cfg).Start(ctx)
}

func printSnapshot(w io.Writer, snap status.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags(), &overrides)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
}

var diagnostic = lipgloss.NewRenderer(os.Stderr).NewStyle().Foreground(lipgloss.Color("1"))

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, diagnostic.Render("! "+err.Error()))
		os.Exit(1)
	}
}

// Personal.AI order the ending
