package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// ErrWorkerBusy is returned when Run is called while a worker is already
// in flight. The orchestrator always awaits completion before dispatching
// the next job, so hitting this is a programming error.
var ErrWorkerBusy = errors.New("engine worker already in flight")

// Request carries one job into an adapter worker together with the
// engine configuration snapshotted at run start.
type Request struct {
	InputPath    string
	OutputPath   string
	BaseName     string
	OutputFormat domain.OutputFormat
	Language     string // ISO code or "auto"
	Task         domain.TaskKind
	MIMEHint     string

	Model      string
	ModelDir   string
	Threads    int
	ServiceURL string
	APIKey     string
}

// Result is the outcome of one adapter worker, consumed exactly once by
// the orchestrator's completion handler. Cancellation is a distinct
// terminal state, not an error.
type Result struct {
	Succeeded    bool
	Cancelled    bool
	ErrorMessage string
	OutputPath   string
}

// Adapter abstracts one speech-recognition backend. Run begins
// asynchronous processing and returns immediately; completion arrives via
// the done callback, exactly once. At most one worker is in flight per
// adapter instance.
type Adapter interface {
	Kind() domain.EngineKind
	Run(req Request, done func(Result)) error
	RequestCancel()
	Shutdown()
	SupportedOutputFormats() []domain.OutputFormat
	RequiresExternalConverter() bool
	SupportsTranslate() bool
}

// worker enforces the one-in-flight lifecycle shared by all adapters:
// Created -> Running -> {Completed | Failed | Cancelled}, no resumption.
type worker struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// begin claims the worker slot and returns the worker context.
func (w *worker) begin() (context.Context, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return nil, ErrWorkerBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	return ctx, nil
}

// finish releases the worker slot.
func (w *worker) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancel = nil
}

// requestCancel cancels the in-flight worker context, if any. The worker
// observes it at its next checkpoint.
func (w *worker) requestCancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
}

// shutdown tears down the held worker handle. Idempotent and safe to call
// when no worker is active.
func (w *worker) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// Available reports whether the backend can run on this host. The
// accelerated engine exists only for Apple silicon.
func Available(kind domain.EngineKind) bool {
	if kind == domain.EngineLocalModelAccel {
		return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
	}
	return kind.Valid()
}

// NewAdapters constructs one adapter per backend available on this host.
// onProgress receives streamed recognition output lines.
func NewAdapters(onProgress func(string)) map[domain.EngineKind]Adapter {
	adapters := map[domain.EngineKind]Adapter{
		domain.EngineNativeBinary:     NewNativeBinary(onProgress),
		domain.EngineLocalModel:       NewLocalModel(onProgress),
		domain.EngineLocalModelFast:   NewFastModel(onProgress),
		domain.EngineRemoteWebservice: NewWebService(onProgress),
		domain.EngineCloudAPI:         NewCloudAPI(onProgress),
	}
	if Available(domain.EngineLocalModelAccel) {
		adapters[domain.EngineLocalModelAccel] = NewAccelerated(onProgress)
	}
	return adapters
}
