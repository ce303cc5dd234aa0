package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider
// selections require a restart and are deliberately absent.
type ConfigDiff struct {
	// LogLevelChanged is true when server.log_level differs.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AgentChanged is true when any agent field differs. New sessions pick
	// up the new values; running sessions keep the old ones.
	AgentChanged bool

	// VoiceChanged is true when the TTS voice or model differs.
	VoiceChanged bool
}

// Empty reports whether nothing hot-reloadable changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.AgentChanged && !d.VoiceChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Agent.Mode != new.Agent.Mode ||
		old.Agent.Restaurant != new.Agent.Restaurant ||
		old.Agent.SystemPrompt != new.Agent.SystemPrompt ||
		old.Agent.PauseHead != new.Agent.PauseHead ||
		old.Agent.NormalizerEnabled() != new.Agent.NormalizerEnabled() {
		d.AgentChanged = true
	}

	if old.TTS.Voice != new.TTS.Voice || old.TTS.Model != new.TTS.Model {
		d.VoiceChanged = true
	}

	return d
}
