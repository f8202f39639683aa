package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/waltervanheuven/speech2text/internal/config"
	"github.com/waltervanheuven/speech2text/internal/diagnostics"
	"github.com/waltervanheuven/speech2text/internal/domain"
	"github.com/waltervanheuven/speech2text/internal/engine"
	"github.com/waltervanheuven/speech2text/internal/jobs"
	"github.com/waltervanheuven/speech2text/internal/orchestrator"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio and video files",
		Pattern:     "*.wav;*.mp3;*.mp4;*.m4a;*.aiff;*.mpeg;*.mov;*.avi;*.wmv;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the orchestrator, and UI runtime callbacks.
type App struct {
	Store       config.Store
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	queue       *jobs.Queue
	events      *jobs.EventBus
	orch        *orchestrator.Orchestrator

	mu         sync.Mutex
	settings   domain.Settings
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	store := config.NewJSONStore(config.DefaultSettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()

	app := &App{
		Store:       store,
		Diagnostics: checker.Run(settings),
		assets:      assets,
		checker:     checker,
		queue:       jobs.NewQueue(),
		events:      jobs.NewEventBus(1000),
		settings:    settings,
	}
	app.events.SetNotify(app.pushEvent)

	adapters := engine.NewAdapters(app.publishProgressLine)
	app.orch = orchestrator.New(app.queue, app.events, adapters, orchestrator.Callbacks{
		ConfirmOverwrite:   app.confirmOverwrite,
		ConfirmInsecureURL: app.confirmInsecureURL,
	})

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Speech2Text",
		Width:       1100,
		Height:      760,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			a.runtimeCtx = nil
			a.mu.Unlock()
			a.orch.Shutdown()
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events and dialogs.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// SubmitFiles prepends the selected files to the processing queue and
// returns the updated queue snapshot.
func (a *App) SubmitFiles(paths []string) []string {
	cleaned := make([]string, 0, len(paths))
	for _, path := range paths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	a.orch.SubmitFiles(cleaned)
	return a.queue.Snapshot()
}

// StartRun snapshots the persisted settings and starts processing.
func (a *App) StartRun() error {
	settings, err := a.Store.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	return a.orch.StartRun(settings)
}

// CancelRun requests cooperative cancellation of the active run.
func (a *App) CancelRun() error {
	return a.orch.CancelRun()
}

// QueueSnapshot returns the pending file paths for display.
func (a *App) QueueSnapshot() []string {
	return a.queue.Snapshot()
}

// CurrentStatus reports the orchestrator's run status.
func (a *App) CurrentStatus() domain.RunStatus {
	return a.orch.CurrentStatus()
}

// RunEvents returns all events with sequence numbers greater than sinceSeq.
func (a *App) RunEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics for the possibly changed engine selection.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.settings = normalized
	a.Diagnostics = a.checker.Run(normalized)
	a.mu.Unlock()

	return normalized, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns the engine-scoped checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()

	return report, nil
}

// PickInputFiles opens a native multi-select dialog for media files.
func (a *App) PickInputFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	return wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio or video files",
		Filters: mediaDialogFilter,
	})
}

// PickModelDirectory opens a native directory picker for the model folder.
func (a *App) PickModelDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select model directory",
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the folder containing the given path in the
// platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// publishProgressLine records streamed recognition output in the event
// history; push delivery rides on the bus notify hook.
func (a *App) publishProgressLine(text string) {
	a.events.Publish(jobs.Event{
		Type:    jobs.EventTypeProgress,
		Status:  a.orch.CurrentStatus(),
		Message: text,
	})
}

// pushEvent emits a runtime push notification for one published event.
func (a *App) pushEvent(event jobs.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "run:event", event)
	}
}

// confirmOverwrite asks whether an existing output file may be replaced.
// Headless contexts answer no.
func (a *App) confirmOverwrite(path string, remaining int) domain.OverwriteDecision {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.OverwriteNo
	}

	buttons := []string{"Yes", "No"}
	if remaining > 0 {
		buttons = []string{"Yes", "Yes to All", "No", "No to All"}
	}

	answer, err := wailsruntime.MessageDialog(ctx, wailsruntime.MessageDialogOptions{
		Type:          wailsruntime.QuestionDialog,
		Title:         "File exists",
		Message:       fmt.Sprintf("'%s' already exists. Overwrite?", filepath.Base(path)),
		Buttons:       buttons,
		DefaultButton: "No",
	})
	if err != nil {
		return domain.OverwriteNo
	}

	switch answer {
	case "Yes":
		return domain.OverwriteYes
	case "Yes to All":
		return domain.OverwriteYesToAll
	case "No to All":
		return domain.OverwriteNoToAll
	default:
		return domain.OverwriteNo
	}
}

// confirmInsecureURL asks once per run whether a plain-http webservice
// connection may be used. Headless contexts answer no.
func (a *App) confirmInsecureURL(url string) bool {
	ctx, err := a.runtimeContext()
	if err != nil {
		return false
	}

	answer, err := wailsruntime.MessageDialog(ctx, wailsruntime.MessageDialogOptions{
		Type:          wailsruntime.QuestionDialog,
		Title:         "Insecure connection",
		Message:       fmt.Sprintf("The connection to '%s' is not encrypted. Continue anyway?", url),
		Buttons:       []string{"Continue", "Cancel"},
		DefaultButton: "Cancel",
	})
	if err != nil {
		return false
	}
	return answer == "Continue"
}

// runtimeContext returns the Wails runtime context used by dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// ensureLocalBinOnPATH prepends the app's tool directory so bundled
// helper binaries resolve in GUI-launched processes.
func ensureLocalBinOnPATH(homeDir string) error {
	binDir := filepath.Join(homeDir, ".speech2text", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}

	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}

// openInFileManager launches the platform file explorer for the path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
