package model

import "time"

// Shared defaults used by the TUI, the headless CLI and the tests.
const (
	DefaultBaseURL         = "http://127.0.0.1:5000/api"
	DefaultTimeout         = 10 * time.Second
	DefaultChatTimeout     = 120 * time.Second
	DefaultTimestampLayout = "2006/01/02 15:04"
	DefaultRoundCount      = 3
	DefaultSkin            = "default"

	// SettingsKey is the local storage key holding the AI assistant settings.
	SettingsKey = "olam_ai_settings_v1"
)
