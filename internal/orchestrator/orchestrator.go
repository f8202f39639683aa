package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waltervanheuven/speech2text/internal/convert"
	"github.com/waltervanheuven/speech2text/internal/domain"
	"github.com/waltervanheuven/speech2text/internal/engine"
	"github.com/waltervanheuven/speech2text/internal/jobs"
	"github.com/waltervanheuven/speech2text/internal/probe"
)

// ErrRunActive is returned when StartRun is called while a run is already
// in progress.
var ErrRunActive = errors.New("a run is already in progress")

// ErrNoActiveRun is returned when CancelRun is called in idle state.
var ErrNoActiveRun = errors.New("no active run")

// ErrQueueEmpty is returned when StartRun is called with nothing queued.
var ErrQueueEmpty = errors.New("no files in queue")

// Callbacks delivers run progress and prompts to the presentation layer.
// Nil callbacks are tolerated; nil prompts answer conservatively (do not
// overwrite, do not continue over insecure connections).
type Callbacks struct {
	OnProgressLine     func(text string)
	OnJobAdvanced      func(remaining int)
	OnRunFinished      func(duration time.Duration)
	OnRunFailed        func(message string)
	OnRunCancelled     func()
	ConfirmOverwrite   func(path string, remaining int) domain.OverwriteDecision
	ConfirmInsecureURL func(url string) bool
}

// converterHandle is the converter surface the run loop drives. Satisfied
// by *convert.Converter and by test fakes.
type converterHandle interface {
	Available() bool
	Start(sourcePath, targetFormat string) error
	Done() <-chan convert.Outcome
	RequestCancel()
	Shutdown()
}

// runState holds everything scoped to one run: the settings snapshot, the
// chosen adapter, the converter handle, and the sticky overwrite policy.
type runState struct {
	id        string
	settings  domain.Settings
	adapter   engine.Adapter
	converter converterHandle
	startedAt time.Time
	policy    domain.OverwritePolicy
}

// Orchestrator is the top-level state machine driving the sequential queue
// processor. There is exactly one run at a time; jobs never execute
// concurrently, and a converter and an engine worker are never active
// simultaneously.
type Orchestrator struct {
	queue     *jobs.Queue
	bus       *jobs.EventBus
	adapters  map[domain.EngineKind]engine.Adapter
	callbacks Callbacks

	newConverter func(ffmpegPath string) converterHandle
	probeFile    func(path string) probe.FileFacts
	acceptable   func(path string) bool
	stat         func(name string) (os.FileInfo, error)

	mu     sync.Mutex
	status domain.RunStatus
	cancel context.CancelFunc
	run    *runState
}

// New constructs an idle orchestrator around the shared queue and bus.
func New(queue *jobs.Queue, bus *jobs.EventBus, adapters map[domain.EngineKind]engine.Adapter, callbacks Callbacks) *Orchestrator {
	return &Orchestrator{
		queue:     queue,
		bus:       bus,
		adapters:  adapters,
		callbacks: callbacks,
		newConverter: func(ffmpegPath string) converterHandle {
			return convert.New(ffmpegPath)
		},
		probeFile:  probe.Probe,
		acceptable: probe.Acceptable,
		stat:       os.Stat,
		status:     domain.RunStatusIdle,
	}
}

// NewForTests constructs an orchestrator with injectable dependencies.
func NewForTests(
	queue *jobs.Queue,
	bus *jobs.EventBus,
	adapters map[domain.EngineKind]engine.Adapter,
	callbacks Callbacks,
	newConverter func(ffmpegPath string) converterHandle,
	probeFile func(path string) probe.FileFacts,
	acceptable func(path string) bool,
	stat func(name string) (os.FileInfo, error),
) *Orchestrator {
	return &Orchestrator{
		queue:        queue,
		bus:          bus,
		adapters:     adapters,
		callbacks:    callbacks,
		newConverter: newConverter,
		probeFile:    probeFile,
		acceptable:   acceptable,
		stat:         stat,
		status:       domain.RunStatusIdle,
	}
}

// SubmitFiles prepends paths to the queue as a block. Accepted in any
// state; a mid-run submission jumps ahead of pending work.
func (o *Orchestrator) SubmitFiles(paths []string) {
	if len(paths) == 0 {
		return
	}
	o.queue.PushFront(paths...)
}

// CurrentStatus reports the run-status snapshot.
func (o *Orchestrator) CurrentStatus() domain.RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// StartRun snapshots the settings and begins processing the queue on a
// run-loop goroutine. The overwrite policy resets to ask for every run.
func (o *Orchestrator) StartRun(settings domain.Settings) error {
	o.mu.Lock()
	if o.status != domain.RunStatusIdle {
		o.mu.Unlock()
		return ErrRunActive
	}
	if o.queue.Len() == 0 {
		o.mu.Unlock()
		return ErrQueueEmpty
	}

	adapter, ok := o.adapters[settings.Engine]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("engine %s is not available on this computer", settings.Engine)
	}

	// Guard against a stale selection from an earlier engine choice.
	settings.OutputFormat = domain.EffectiveOutputFormat(settings.Engine, settings.OutputFormat)

	ctx, cancel := context.WithCancel(context.Background())
	run := &runState{
		id:        uuid.NewString(),
		settings:  settings,
		adapter:   adapter,
		converter: o.newConverter(settings.FFmpegPath),
		startedAt: time.Now(),
		policy:    domain.OverwriteAsk,
	}
	o.cancel = cancel
	o.run = run
	o.status = domain.RunStatusProcessing
	o.mu.Unlock()

	o.publishStatus(run.id, domain.RunStatusProcessing)
	go o.runLoop(ctx, run)
	return nil
}

// CancelRun requests cooperative cancellation of the active run.
// Idempotent: a second request while cancelling is a no-op.
func (o *Orchestrator) CancelRun() error {
	o.mu.Lock()
	if o.status == domain.RunStatusIdle {
		o.mu.Unlock()
		return ErrNoActiveRun
	}
	if o.status == domain.RunStatusCancelling {
		o.mu.Unlock()
		return nil
	}
	o.status = domain.RunStatusCancelling
	cancel := o.cancel
	run := o.run
	o.mu.Unlock()

	o.publishStatus(run.id, domain.RunStatusCancelling)
	cancel()
	run.converter.RequestCancel()
	run.adapter.RequestCancel()
	return nil
}

// Shutdown cancels any active run. Called on application exit.
func (o *Orchestrator) Shutdown() {
	if err := o.CancelRun(); err != nil && !errors.Is(err, ErrNoActiveRun) {
		slog.Error("cancel on shutdown", "error", err)
	}
}

// jobOutcome tells the run loop how to proceed after one job.
type jobOutcome struct {
	cancelled bool
	failed    bool
	message   string
}

// runLoop drives the per-job algorithm until the queue drains or a halt
// condition funnels into the finish-run routine.
func (o *Orchestrator) runLoop(ctx context.Context, run *runState) {
	if message, ok := o.prepareRun(run); !ok {
		if message == "" {
			o.finishCancelled(run)
		} else {
			o.finishFailed(run, message)
		}
		return
	}

	for {
		if ctx.Err() != nil {
			o.finishCancelled(run)
			return
		}
		if o.queue.Len() == 0 {
			o.finishSucceeded(run)
			return
		}

		path := o.queue.PopFront()
		if path == "" {
			o.finishSucceeded(run)
			return
		}

		outcome := o.processJob(ctx, run, path)
		switch {
		case outcome.cancelled:
			o.finishCancelled(run)
			return
		case outcome.failed:
			o.finishFailed(run, outcome.message)
			return
		}
	}
}

// prepareRun performs run-wide validation before the first job. For the
// webservice engine that means URL normalization plus, for plain http, one
// sticky confirmation prompt. It returns ok=false with a message for
// failure, or ok=false with an empty message when the user declined.
func (o *Orchestrator) prepareRun(run *runState) (string, bool) {
	if run.settings.Engine != domain.EngineRemoteWebservice {
		return "", true
	}

	normalized, err := engine.NormalizeServiceURL(run.settings.WebServiceURL)
	if err != nil {
		return err.Error(), false
	}
	run.settings.WebServiceURL = normalized

	if strings.HasPrefix(normalized, "http://") {
		if !o.confirmInsecureURL(normalized) {
			return "", false
		}
	}
	return "", true
}

// processJob runs one queue head through the whitelist check, the
// 30-second auto-detect gate, the conversion decision, the overwrite
// policy, and finally the engine adapter.
func (o *Orchestrator) processJob(ctx context.Context, run *runState, path string) jobOutcome {
	base := filepath.Base(path)

	if !o.acceptable(path) {
		return jobOutcome{failed: true, message: fmt.Sprintf("Unsupported file type: '%s'.", base)}
	}

	facts := o.probeFile(path)
	if seconds := facts.Duration; seconds > 0 && seconds < 30 && autoLanguage(run.settings.Language) {
		return jobOutcome{failed: true, message: fmt.Sprintf(
			"File '%s' is only %.0f seconds long. Language detection requires at least 30 seconds of audio; select a language instead.",
			base, seconds)}
	}

	decision := o.decideConversion(path, facts, run.settings.Engine, run.converter.Available())

	if decision.NeedsConversion && !run.converter.Available() {
		if !facts.IsWAV {
			return jobOutcome{failed: true, message: fmt.Sprintf(
				"File '%s' must be converted to WAV but the ffmpeg tool is not installed.", base)}
		}
		// Non-canonical WAV passes through; the tool may still cope.
		decision.NeedsConversion = false
	}

	workingPath := path
	switch {
	case decision.AlreadyConverted:
		o.progressLine(run, fmt.Sprintf("Using previously converted file '%s'.", filepath.Base(decision.TargetPath)))
		workingPath = decision.TargetPath
	case decision.NeedsConversion:
		if !o.guardOverwrite(run, decision.TargetPath) {
			o.skipJob(run, path)
			return jobOutcome{}
		}
		return o.convertJob(ctx, run, path, decision.TargetPath)
	}

	outputPath := artifactPath(workingPath, run.settings.OutputFormat)
	if !o.guardOverwrite(run, outputPath) {
		o.skipJob(run, path)
		return jobOutcome{}
	}

	return o.dispatchEngine(ctx, run, workingPath, outputPath, facts)
}

// convertJob drives one conversion and splices the converted path in at
// the queue front so the same logical job re-enters the decision step
// pointing at the converted file.
func (o *Orchestrator) convertJob(ctx context.Context, run *runState, path, targetPath string) jobOutcome {
	o.setStatus(run.id, domain.RunStatusConverting)
	o.progressLine(run, fmt.Sprintf("Converting '%s' to WAV...", filepath.Base(path)))

	if err := run.converter.Start(path, "wav"); err != nil {
		return jobOutcome{failed: true, message: fmt.Sprintf("Cannot convert '%s': %v.", filepath.Base(path), err)}
	}

	result := <-run.converter.Done()
	switch {
	case result.Cancelled:
		return jobOutcome{cancelled: true}
	case !result.OK:
		return jobOutcome{failed: true, message: result.Message}
	}

	o.queue.PushFront(targetPath)
	if ctx.Err() != nil {
		return jobOutcome{cancelled: true}
	}
	o.setStatus(run.id, domain.RunStatusProcessing)
	return jobOutcome{}
}

// dispatchEngine hands the working file to the active adapter and waits
// for its asynchronous result.
func (o *Orchestrator) dispatchEngine(ctx context.Context, run *runState, workingPath, outputPath string, facts probe.FileFacts) jobOutcome {
	o.progressLine(run, fmt.Sprintf("Processing '%s'...", filepath.Base(workingPath)))

	results := make(chan engine.Result, 1)
	err := run.adapter.Run(engine.Request{
		InputPath:    workingPath,
		OutputPath:   outputPath,
		BaseName:     filepath.Base(workingPath),
		OutputFormat: run.settings.OutputFormat,
		Language:     run.settings.Language,
		Task:         run.settings.Task,
		MIMEHint:     facts.Kind.MIMEHint(),
		Model:        run.settings.Model,
		ModelDir:     run.settings.ModelDir,
		Threads:      run.settings.Threads,
		ServiceURL:   run.settings.WebServiceURL,
		APIKey:       run.settings.APIKey,
	}, func(r engine.Result) { results <- r })
	if err != nil {
		return jobOutcome{failed: true, message: fmt.Sprintf("Cannot process '%s': %v.", filepath.Base(workingPath), err)}
	}

	result := <-results
	switch {
	case result.Cancelled:
		return jobOutcome{cancelled: true}
	case !result.Succeeded:
		return jobOutcome{failed: true, message: result.ErrorMessage}
	}
	if ctx.Err() != nil {
		return jobOutcome{cancelled: true}
	}

	remaining := o.queue.Len()
	o.bus.Publish(jobs.Event{
		RunID:     run.id,
		Type:      jobs.EventTypeResult,
		Status:    domain.RunStatusProcessing,
		Message:   fmt.Sprintf("Done: '%s'.", filepath.Base(result.OutputPath)),
		Path:      result.OutputPath,
		Remaining: remaining,
	})
	if o.callbacks.OnJobAdvanced != nil {
		o.callbacks.OnJobAdvanced(remaining)
	}
	return jobOutcome{}
}

// guardOverwrite applies the run-scoped overwrite policy to a destination
// path and reports whether writing is allowed. A ToAll answer makes the
// policy sticky for the remainder of the run.
func (o *Orchestrator) guardOverwrite(run *runState, destPath string) bool {
	if _, err := o.stat(destPath); err != nil {
		return true
	}

	switch run.policy {
	case domain.OverwriteAlways:
		return true
	case domain.OverwriteNever:
		return false
	}

	decision := o.confirmOverwrite(destPath, o.queue.Len())
	policy, allowed := run.policy.Apply(decision)
	run.policy = policy
	return allowed
}

// skipJob records a skipped file. Skipping is not an error; the run
// advances to the next queued file.
func (o *Orchestrator) skipJob(run *runState, path string) {
	remaining := o.queue.Len()
	o.bus.Publish(jobs.Event{
		RunID:     run.id,
		Type:      jobs.EventTypeProgress,
		Status:    o.CurrentStatus(),
		Message:   fmt.Sprintf("Skipped '%s': output exists.", filepath.Base(path)),
		Path:      path,
		Remaining: remaining,
	})
	if o.callbacks.OnJobAdvanced != nil {
		o.callbacks.OnJobAdvanced(remaining)
	}
}

// finishSucceeded ends the run after the queue drained normally.
func (o *Orchestrator) finishSucceeded(run *runState) {
	duration := time.Since(run.startedAt)
	o.teardown(run)
	o.bus.Publish(jobs.Event{
		RunID:   run.id,
		Type:    jobs.EventTypeStatus,
		Status:  domain.RunStatusIdle,
		Message: fmt.Sprintf("Finished, duration: %s.", formatDuration(duration)),
	})
	if o.callbacks.OnRunFinished != nil {
		o.callbacks.OnRunFinished(duration)
	}
}

// finishFailed ends the run with one human-readable message. Artifacts of
// earlier successful jobs are preserved; only pending work is discarded.
func (o *Orchestrator) finishFailed(run *runState, message string) {
	o.teardown(run)
	o.bus.Publish(jobs.Event{
		RunID:   run.id,
		Type:    jobs.EventTypeError,
		Status:  domain.RunStatusIdle,
		Message: message,
	})
	if o.callbacks.OnRunFailed != nil {
		o.callbacks.OnRunFailed(message)
	}
}

// finishCancelled ends the run after cooperative cancellation completed.
func (o *Orchestrator) finishCancelled(run *runState) {
	o.teardown(run)
	o.bus.Publish(jobs.Event{
		RunID:   run.id,
		Type:    jobs.EventTypeStatus,
		Status:  domain.RunStatusIdle,
		Message: "Cancelled.",
	})
	if o.callbacks.OnRunCancelled != nil {
		o.callbacks.OnRunCancelled()
	}
}

// teardown is the single finish-run routine shared by all outcomes: clear
// the queue, shut down worker handles, release the cancellation context,
// and return to idle.
func (o *Orchestrator) teardown(run *runState) {
	o.queue.Clear()
	run.converter.Shutdown()
	run.adapter.Shutdown()

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.run = nil
	o.status = domain.RunStatusIdle
	o.mu.Unlock()

	o.publishStatus(run.id, domain.RunStatusIdle)
}

// publishStatus emits one status event for UI consumption.
func (o *Orchestrator) publishStatus(runID string, status domain.RunStatus) {
	o.bus.Publish(jobs.Event{
		RunID:     runID,
		Type:      jobs.EventTypeStatus,
		Status:    status,
		Remaining: o.queue.Len(),
	})
}

// progressLine emits one progress event and forwards it to the UI.
func (o *Orchestrator) progressLine(run *runState, text string) {
	o.bus.Publish(jobs.Event{
		RunID:     run.id,
		Type:      jobs.EventTypeProgress,
		Status:    o.CurrentStatus(),
		Message:   text,
		Remaining: o.queue.Len(),
	})
	if o.callbacks.OnProgressLine != nil {
		o.callbacks.OnProgressLine(text)
	}
}

// confirmOverwrite asks the presentation layer whether destPath may be
// replaced. Without a prompt the conservative answer is no.
func (o *Orchestrator) confirmOverwrite(path string, remaining int) domain.OverwriteDecision {
	if o.callbacks.ConfirmOverwrite == nil {
		return domain.OverwriteNo
	}
	return o.callbacks.ConfirmOverwrite(path, remaining)
}

// confirmInsecureURL asks whether a plain-http webservice URL may be used.
func (o *Orchestrator) confirmInsecureURL(url string) bool {
	if o.callbacks.ConfirmInsecureURL == nil {
		return false
	}
	return o.callbacks.ConfirmInsecureURL(url)
}

// autoLanguage reports whether the language setting requests detection.
func autoLanguage(language string) bool {
	return language == "" || strings.EqualFold(language, "auto")
}

// artifactPath derives the output artifact path: same directory, same base
// name, selected format extension.
func artifactPath(workingPath string, format domain.OutputFormat) string {
	dir := filepath.Dir(workingPath)
	base := filepath.Base(workingPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+format.Extension())
}

// formatDuration renders a run duration in h/m/s phrasing.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
