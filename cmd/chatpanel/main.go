package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ChatPanel/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        config.Config
)

// rootCmd runs the interactive chat
var rootCmd = &cobra.Command{
	Use:   "chatpanel",
	Short: "Terminal client for a remote chat service",
	Long: `chatpanel talks to a chat service over HTTP (/health, /session/create, /chat,
/history/{id}, /session/{id}) and keeps a local transcript of the active session.

Settings (API endpoint, system prompt, display options) are stored locally and edited
from inside the chat with /settings, /set, /save and /reset.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runChat,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath(), "Path to TOML config file")
	flags.StringVar(&cfg.APIURL, "api-url", "", "Chat service URL for this run (overrides saved apiUrl)")
	flags.StringVar(&cfg.Store, "store", config.StoreSQLite, "Settings store (sqlite|file|memory)")
	flags.StringVar(&cfg.DataDir, "data-dir", "", "Directory for the database and settings file")
	flags.StringVar(&cfg.LogDir, "log-dir", "", "Directory for rotated logs (default <data-dir>/logs)")
	flags.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&cfg.Render, "render", false, "Render bot replies as markdown")
	flags.BoolVar(&cfg.Telemetry, "telemetry", true, "Export traces and metrics to the log directory")
	flags.IntVar(&cfg.RequestTimeoutSecs, "timeout", 60, "HTTP request timeout in seconds (0 = none)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// loadConfig merges the TOML file under any flags given on the command line
func loadConfig(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("api-url") {
		cfg.APIURL = fileCfg.APIURL
	}
	if !flags.Changed("store") {
		cfg.Store = fileCfg.Store
	}
	if !flags.Changed("data-dir") {
		cfg.DataDir = fileCfg.DataDir
	}
	if !flags.Changed("log-dir") {
		cfg.LogDir = fileCfg.LogDir
	}
	if !flags.Changed("debug") {
		cfg.Debug = fileCfg.Debug
	}
	if !flags.Changed("render") {
		cfg.Render = fileCfg.Render
	}
	if !flags.Changed("telemetry") {
		cfg.Telemetry = fileCfg.Telemetry
	}
	if !flags.Changed("timeout") {
		cfg.RequestTimeoutSecs = fileCfg.RequestTimeoutSecs
	}

	return cfg.Validate()
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("failed to initialize chatpanel: %w", err)
	}
	defer rt.Close()

	return rt.bot.Run(ctx, os.Stdin)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
