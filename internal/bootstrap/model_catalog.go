package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waltervanheuven/speech2text/internal/domain"
	"github.com/waltervanheuven/speech2text/internal/engine"
	"github.com/waltervanheuven/speech2text/internal/jobs"
)

// GetWhisperModels returns the built-in whisper.cpp model presets with
// their downloaded state resolved against the configured model directory.
func (a *App) GetWhisperModels() ([]domain.WhisperModelOption, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	models := make([]domain.WhisperModelOption, len(domain.WhisperModelCatalog))
	copy(models, domain.WhisperModelCatalog)
	markDownloadedModels(models, settings.ModelDir)
	return models, nil
}

// DownloadWhisperModel fetches the selected preset into the model
// directory, selects it in settings, and returns the updated settings.
// Already-downloaded models are selected without a network fetch.
func (a *App) DownloadWhisperModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	if _, err := engine.EnsureModel(context.Background(), id, settings.ModelDir, a.publishModelProgress); err != nil {
		return domain.Settings{}, err
	}

	settings.Model = id
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.Diagnostics = a.checker.Run(settings)
	a.mu.Unlock()

	return settings, nil
}

// publishModelProgress surfaces model download progress in the event feed.
func (a *App) publishModelProgress(text string) {
	a.events.Publish(jobs.Event{
		Type:    jobs.EventTypeProgress,
		Status:  a.orch.CurrentStatus(),
		Message: text,
	})
}

// markDownloadedModels stats each preset's file in the model directory and
// fills in Downloaded and LocalPath for the ones found on disk.
func markDownloadedModels(models []domain.WhisperModelOption, modelDir string) {
	dir := strings.TrimSpace(modelDir)
	if dir == "" {
		return
	}
	for i := range models {
		candidate := filepath.Join(dir, models[i].FileName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		models[i].Downloaded = true
		models[i].LocalPath = candidate
	}
}
