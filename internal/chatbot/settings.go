package chatbot

import (
	"context"
	"fmt"

	"ChatPanel/internal/session"
	"ChatPanel/internal/settings"
)

// LoadSettings reads the saved settings (defaults merged with the stored record) and
// points the service at the saved apiUrl. On a read error the defaults are used.
func (cb *ChatBot) LoadSettings() error {
	s, err := cb.settings.Load()
	if err != nil {
		cb.logger.Warn("failed to load settings", "error", err)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.apiOverride != "" {
		s.APIURL = cb.apiOverride
	}
	cb.saved = s
	cb.pending = s.Clone()
	cb.service.SetBaseURL(s.APIURL)
	cb.logger.Info("settings loaded", "api_url", s.APIURL, "auto_save", s.AutoSave)
	return err
}

// Settings returns the settings in effect
func (cb *ChatBot) Settings() settings.Settings {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.saved.Clone()
}

// PendingSettings returns the edited but not yet saved settings
func (cb *ChatBot) PendingSettings() settings.Settings {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.pending.Clone()
}

// SetPending edits one pending settings field
func (cb *ChatBot) SetPending(key, value string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.pending.Set(key, value); err != nil {
		return err
	}
	cb.view.ShowSettings(cb.pending)
	return nil
}

// ResetSettings puts the defaults into the pending settings. Nothing is persisted
// until SaveSettings.
func (cb *ChatBot) ResetSettings() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.pending = settings.Defaults()
	cb.view.ShowSettings(cb.pending)
}

// SaveSettings persists the pending settings wholesale, makes them current, repoints
// the service and re-checks connectivity
func (cb *ChatBot) SaveSettings(ctx context.Context) error {
	cb.mu.Lock()
	s := cb.pending.Clone()
	cb.mu.Unlock()

	if err := cb.settings.Save(s); err != nil {
		cb.logger.Error("failed to save settings", "error", err)
		cb.mu.Lock()
		cb.view.Notice("Failed to save settings.")
		cb.mu.Unlock()
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cb.mu.Lock()
	cb.saved = s
	cb.service.SetBaseURL(s.APIURL)
	cb.appendLocked(session.NewBotMessage(SettingsSavedNotice, cb.now()))
	cb.mu.Unlock()

	cb.logger.Info("settings saved", "api_url", s.APIURL)
	cb.CheckConnectivity(ctx)
	return nil
}
