package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// defaultThreads is the recognition thread count used when none is set.
const defaultThreads = 4

// DefaultSettingsPath returns the settings file location under the user's
// home directory.
func DefaultSettingsPath() string {
	return filepath.Join(configDir(), "settings.json")
}

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Engine:       domain.EngineNativeBinary,
		OutputFormat: domain.FormatVTT,
		Language:     "auto",
		Task:         domain.TaskTranscribe,
		Model:        "base",
		ModelDir:     filepath.Join(configDir(), "models"),
		Threads:      defaultThreads,
	}
}

// Normalize repairs a settings value so the orchestrator never snapshots
// an unusable configuration: unknown enum values fall back to defaults,
// free-text fields are trimmed, the thread count gets a floor, and an
// output format the engine cannot write downgrades to VTT.
func Normalize(s domain.Settings) domain.Settings {
	if !s.Engine.Valid() {
		s.Engine = domain.EngineNativeBinary
	}
	if s.Task != domain.TaskTranscribe && s.Task != domain.TaskTranslate {
		s.Task = domain.TaskTranscribe
	}

	s.Language = strings.TrimSpace(s.Language)
	if s.Language == "" {
		s.Language = "auto"
	}
	s.Model = strings.TrimSpace(s.Model)
	if s.Model == "" {
		s.Model = "base"
	}
	s.ModelDir = strings.TrimSpace(s.ModelDir)
	if s.ModelDir == "" {
		s.ModelDir = filepath.Join(configDir(), "models")
	}
	s.FFmpegPath = strings.TrimSpace(s.FFmpegPath)
	s.WebServiceURL = strings.TrimSpace(s.WebServiceURL)
	s.APIKey = strings.TrimSpace(s.APIKey)

	if s.Threads < 1 {
		s.Threads = defaultThreads
	}

	if s.OutputFormat == "" {
		s.OutputFormat = domain.FormatVTT
	}
	s.OutputFormat = domain.EffectiveOutputFormat(s.Engine, s.OutputFormat)

	return s
}

// configDir is the application's directory under the user's home.
func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".speech2text")
}
