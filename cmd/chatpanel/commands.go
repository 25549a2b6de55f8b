package main

import (
	"fmt"
	"strings"

	"ChatPanel/internal/chatbot"
	"ChatPanel/internal/settings"

	"github.com/spf13/cobra"
)

// healthCmd probes the chat service once
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the connection to the chat service",
	RunE:  runHealth,
}

// settingsCmd manages the saved settings
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or reset the saved settings",
	RunE:  runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved settings",
	RunE:  runSettingsShow,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore and save the default settings",
	RunE:  runSettingsReset,
}

// sessionsCmd lists archived transcripts
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived chat sessions",
	Long: `List and show transcripts archived while autoSave is on.

Subcommands:
  list   - List archived sessions
  show   - Print an archived transcript`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print an archived transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsResetCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.bot.LoadSettings(); err != nil {
		rt.logger.Warn("using default settings", "error", err)
	}
	connected := rt.bot.CheckConnectivity(cmd.Context())
	printf(cmd.OutOrStdout(), "%s %s\n", chatbot.ConnectionLabel(connected), rt.client.BaseURL())
	if !connected {
		return fmt.Errorf("chat service at %s is not reachable", rt.client.BaseURL())
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := rt.manager.Load()
	if err != nil {
		return err
	}
	for _, key := range settings.Keys() {
		value, _ := s.Get(key)
		printf(cmd.OutOrStdout(), "%-15s %s\n", key, value)
	}
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.manager.Save(settings.Defaults()); err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "Settings reset to defaults.\n")
	return nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.db == nil {
		return fmt.Errorf("the %s store keeps no archive; use --store sqlite", cfg.Store)
	}

	sessions, err := rt.db.ListTranscripts(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		printf(out, "No archived sessions found.\n")
		return nil
	}

	printf(out, "Archived Sessions\n%s\n", strings.Repeat("─", 50))
	for i, s := range sessions {
		printf(out, "  %d. %s  %s  (%d messages)\n", i+1, s.ID, s.StartTime.Local().Format("2006-01-02 15:04"), s.MessageCount)
	}
	printf(out, "%s\nTotal: %d sessions\n", strings.Repeat("─", 50), len(sessions))
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.db == nil {
		return fmt.Errorf("the %s store keeps no archive; use --store sqlite", cfg.Store)
	}

	sess, err := rt.db.LoadTranscript(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printf(out, "Session %s (started %s)\n", sess.ID, sess.StartTime.Local().Format("2006-01-02 15:04"))
	if sess.SystemPrompt != "" {
		printf(out, "System prompt: %s\n", sess.SystemPrompt)
	}
	printf(out, "\n")
	for _, m := range sess.Messages {
		label := "Bot"
		if m.IsUser() {
			label = "You"
		}
		printf(out, "[%s] %s: %s\n\n", m.Timestamp.Local().Format("15:04:05"), label, m.Content)
	}
	return nil
}
