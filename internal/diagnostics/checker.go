package diagnostics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/waltervanheuven/speech2text/internal/domain"
	"github.com/waltervanheuven/speech2text/internal/engine"
)

// engineTools maps each backend to the executable it shells out to.
// The webservice and cloud engines need no local tool.
var engineTools = map[domain.EngineKind]string{
	domain.EngineNativeBinary:    "whisper-cli",
	domain.EngineLocalModel:      "whisper",
	domain.EngineLocalModelFast:  "whisper-ctranslate2",
	domain.EngineLocalModelAccel: "mlx_whisper",
}

// Checker validates external tools and configuration for the active
// engine selection.
type Checker struct {
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	readDir  func(string) ([]os.DirEntry, error)
	ping     func(url string) error
}

// NewChecker builds a checker using real OS and network dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath: exec.LookPath,
		stat:     os.Stat,
		readDir:  os.ReadDir,
		ping:     pingURL,
	}
}

// Run executes the startup checks scoped to the engine selected in the
// settings and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	var items []domain.DiagnosticItem

	switch settings.Engine {
	case domain.EngineNativeBinary:
		items = append(items,
			c.checkTool(engineTools[settings.Engine]),
			c.checkFFmpeg(settings.FFmpegPath),
			c.checkModelDir(settings.ModelDir),
		)
	case domain.EngineLocalModel:
		items = append(items,
			c.checkTool(engineTools[settings.Engine]),
			c.checkFFmpeg(settings.FFmpegPath),
		)
	case domain.EngineLocalModelFast, domain.EngineLocalModelAccel:
		items = append(items, c.checkTool(engineTools[settings.Engine]))
	case domain.EngineRemoteWebservice:
		items = append(items, c.checkWebServiceURL(settings.WebServiceURL))
	case domain.EngineCloudAPI:
		items = append(items, c.checkAPIKey(settings.APIKey))
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		Engine:      settings.Engine,
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before starting.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkFFmpeg verifies the conversion tool. An explicit configured path
// takes precedence over PATH lookup.
func (c *Checker) checkFFmpeg(ffmpegPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "tool_ffmpeg",
		Name: "ffmpeg",
	}

	if strings.TrimSpace(ffmpegPath) != "" {
		if _, err := c.stat(ffmpegPath); err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Configured ffmpeg path does not exist: %s", ffmpegPath)
			item.Hint = "Fix the ffmpeg path in settings or clear it to use PATH lookup."
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Found at %s", ffmpegPath)
		return item
	}

	path, err := c.lookPath("ffmpeg")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "ffmpeg not found in PATH."
		item.Hint = "Install ffmpeg; non-WAV input cannot be converted without it."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkModelDir validates the whisper.cpp model directory.
func (c *Checker) checkModelDir(modelDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_dir",
		Name: "Model directory",
	}

	if strings.TrimSpace(modelDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model directory is empty."
		item.Hint = "Set a directory for whisper.cpp model files in settings."
		return item
	}

	info, err := c.stat(modelDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Created on first download; not an error state.
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Model directory will be created on first download: %s", modelDir)
			return item
		}
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot access model directory: %s", modelDir)
		item.Hint = "Check permissions for the model directory."
		return item
	}
	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model directory is not a directory: %s", modelDir)
		item.Hint = "Point the model directory setting at a folder, not a file."
		return item
	}

	entries, err := c.readDir(modelDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot read model directory: %s", modelDir)
		item.Hint = "Check permissions for the model directory."
		return item
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".bin" {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Model directory is valid: %s", modelDir)
			return item
		}
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("No model downloaded yet: %s", modelDir)
	item.Hint = "The selected model downloads automatically on first use."
	return item
}

// checkWebServiceURL validates the configured webservice URL and probes
// its reachability.
func (c *Checker) checkWebServiceURL(rawURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "webservice_url",
		Name: "Webservice URL",
	}

	normalized, err := engine.NormalizeServiceURL(rawURL)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "Enter the whisper ASR webservice URL, e.g. http://localhost:9000."
		return item
	}

	if err := c.ping(normalized); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Webservice not reachable: %s", normalized)
		item.Hint = "Check that the service is running and the URL is correct."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Webservice reachable: %s", normalized)
	return item
}

// checkAPIKey validates API key presence. The key itself is only proven
// valid by the first request.
func (c *Checker) checkAPIKey(apiKey string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "api_key",
		Name: "API key",
	}

	if strings.TrimSpace(apiKey) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Whisper API key missing."
		item.Hint = "Enter an OpenAI API key in settings."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "API key configured."
	return item
}

// pingURL issues one short GET to test reachability. Any HTTP response
// counts as reachable; only transport errors fail.
func pingURL(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
	ping func(url string) error,
) *Checker {
	return &Checker{
		lookPath: lookPath,
		stat:     stat,
		readDir:  readDir,
		ping:     ping,
	}
}
