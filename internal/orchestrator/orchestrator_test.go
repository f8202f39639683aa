package orchestrator

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/waltervanheuven/speech2text/internal/convert"
	"github.com/waltervanheuven/speech2text/internal/domain"
	"github.com/waltervanheuven/speech2text/internal/engine"
	"github.com/waltervanheuven/speech2text/internal/jobs"
	"github.com/waltervanheuven/speech2text/internal/probe"
)

// fakeAdapter is an engine adapter with scripted behavior. By default
// every job succeeds immediately.
type fakeAdapter struct {
	kind  domain.EngineKind
	runFn func(req engine.Request, done func(engine.Result))

	mu        sync.Mutex
	inputs    []string
	requests  []engine.Request
	cancelled bool
}

func (a *fakeAdapter) Kind() domain.EngineKind { return a.kind }

func (a *fakeAdapter) Run(req engine.Request, done func(engine.Result)) error {
	a.mu.Lock()
	a.inputs = append(a.inputs, req.InputPath)
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	if a.runFn != nil {
		go a.runFn(req, done)
		return nil
	}
	go done(engine.Result{Succeeded: true, OutputPath: req.OutputPath})
	return nil
}

func (a *fakeAdapter) RequestCancel() {
	a.mu.Lock()
	a.cancelled = true
	a.mu.Unlock()
}

func (a *fakeAdapter) Shutdown() {}

func (a *fakeAdapter) SupportedOutputFormats() []domain.OutputFormat {
	return a.kind.SupportedOutputFormats()
}

func (a *fakeAdapter) RequiresExternalConverter() bool {
	return a.kind == domain.EngineNativeBinary
}

func (a *fakeAdapter) SupportsTranslate() bool { return true }

func (a *fakeAdapter) inputsSeen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.inputs...)
}

func (a *fakeAdapter) wasCancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

// fakeConverter is a converter handle with scripted outcomes. When gate
// is set the outcome is held back until the gate closes, so tests can
// interleave other calls with a conversion in flight.
type fakeConverter struct {
	available bool
	outcome   convert.Outcome
	startErr  error
	gate      chan struct{}

	mu        sync.Mutex
	started   []string
	cancelled bool
	done      chan convert.Outcome
}

func (c *fakeConverter) Available() bool { return c.available }

func (c *fakeConverter) Start(sourcePath, targetFormat string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started = append(c.started, sourcePath)
	c.done = make(chan convert.Outcome, 1)
	if c.gate != nil {
		go func(done chan convert.Outcome, outcome convert.Outcome, gate chan struct{}) {
			<-gate
			done <- outcome
		}(c.done, c.outcome, c.gate)
		return nil
	}
	c.done <- c.outcome
	return nil
}

func (c *fakeConverter) Done() <-chan convert.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *fakeConverter) RequestCancel() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
}

func (c *fakeConverter) Shutdown() {}

func (c *fakeConverter) conversionsStarted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.started...)
}

// harness wires an orchestrator around fakes so each test only overrides
// what it cares about.
type harness struct {
	orch      *Orchestrator
	queue     *jobs.Queue
	bus       *jobs.EventBus
	adapter   *fakeAdapter
	converter *fakeConverter

	facts  map[string]probe.FileFacts
	exists map[string]bool

	finished  chan time.Duration
	failed    chan string
	cancelled chan struct{}
	advanced  chan int
}

// newHarness builds the default setup: cloud-api adapter, canonical WAV
// facts for every queued file, no pre-existing outputs.
func newHarness(t *testing.T, kind domain.EngineKind) *harness {
	t.Helper()

	h := &harness{
		queue:     jobs.NewQueue(),
		bus:       jobs.NewEventBus(100),
		adapter:   &fakeAdapter{kind: kind},
		converter: &fakeConverter{available: true, outcome: convert.Outcome{OK: true}},
		facts:     map[string]probe.FileFacts{},
		exists:    map[string]bool{},
		finished:  make(chan time.Duration, 1),
		failed:    make(chan string, 1),
		cancelled: make(chan struct{}, 1),
		advanced:  make(chan int, 16),
	}

	callbacks := Callbacks{
		OnJobAdvanced:  func(remaining int) { h.advanced <- remaining },
		OnRunFinished:  func(d time.Duration) { h.finished <- d },
		OnRunFailed:    func(msg string) { h.failed <- msg },
		OnRunCancelled: func() { h.cancelled <- struct{}{} },
	}

	h.orch = NewForTests(
		h.queue,
		h.bus,
		map[domain.EngineKind]engine.Adapter{kind: h.adapter},
		callbacks,
		func(ffmpegPath string) converterHandle { return h.converter },
		func(path string) probe.FileFacts {
			if facts, ok := h.facts[path]; ok {
				return facts
			}
			return probe.FileFacts{Kind: probe.KindWAV, IsWAV: true, SampleRate: 16000, BitDepth: 16, Duration: 120}
		},
		func(path string) bool {
			facts, ok := h.facts[path]
			return !ok || facts.Kind != probe.KindUnknown
		},
		func(name string) (os.FileInfo, error) {
			if h.exists[name] {
				return nil, nil
			}
			return nil, os.ErrNotExist
		},
	)
	return h
}

// settings returns a run configuration for the harness adapter.
func (h *harness) settings() domain.Settings {
	return domain.Settings{
		Engine:       h.adapter.kind,
		OutputFormat: domain.FormatVTT,
		Language:     "en",
		Task:         domain.TaskTranscribe,
		Model:        "base",
	}
}

// waitFinished blocks until the run reports success.
func (h *harness) waitFinished(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-h.finished:
		return d
	case msg := <-h.failed:
		t.Fatalf("run failed: %s", msg)
	case <-h.cancelled:
		t.Fatal("run cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for run to finish")
	}
	return 0
}

// waitFailed blocks until the run reports failure.
func (h *harness) waitFailed(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-h.failed:
		return msg
	case <-h.finished:
		t.Fatal("run finished, want failure")
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for run to fail")
	}
	return ""
}

// waitCancelled blocks until the run reports cancellation.
func (h *harness) waitCancelled(t *testing.T) {
	t.Helper()
	select {
	case <-h.cancelled:
	case msg := <-h.failed:
		t.Fatalf("run failed: %s", msg)
	case <-h.finished:
		t.Fatal("run finished, want cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for cancellation")
	}
}

// TestRunProcessesQueueInOrder verifies that all-succeeding jobs drain the
// queue in submission order and end in idle with one finish notification.
func TestRunProcessesQueueInOrder(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)
	h.orch.SubmitFiles([]string{"/media/a.wav", "/media/b.wav", "/media/c.wav"})

	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitFinished(t)

	want := []string{"/media/a.wav", "/media/b.wav", "/media/c.wav"}
	got := h.adapter.inputsSeen()
	if len(got) != len(want) {
		t.Fatalf("adapter saw %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("job %d = %q, want %q", i, got[i], want[i])
		}
	}
	if h.queue.Len() != 0 {
		t.Fatalf("queue length = %d, want 0", h.queue.Len())
	}
	if status := h.orch.CurrentStatus(); status != domain.RunStatusIdle {
		t.Fatalf("status = %s, want idle", status)
	}
	if advanced := len(h.advanced); advanced != 3 {
		t.Fatalf("job-advanced notifications = %d, want 3", advanced)
	}
}

// TestMidRunSubmissionJumpsAhead verifies that submission is accepted in
// any state and that the new block is processed before pending work.
func TestMidRunSubmissionJumpsAhead(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)

	release := make(chan struct{})
	var once sync.Once
	h.adapter.runFn = func(req engine.Request, done func(engine.Result)) {
		once.Do(func() {
			h.orch.SubmitFiles([]string{"/media/late.wav"})
			close(release)
		})
		<-release
		done(engine.Result{Succeeded: true, OutputPath: req.OutputPath})
	}

	h.orch.SubmitFiles([]string{"/media/a.wav", "/media/b.wav"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitFinished(t)

	got := h.adapter.inputsSeen()
	want := []string{"/media/a.wav", "/media/late.wav", "/media/b.wav"}
	if len(got) != len(want) {
		t.Fatalf("adapter saw %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("job %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestNonWAVWithoutToolRejected verifies that a converter-requiring engine
// with no tool rejects non-WAV input before the adapter is ever invoked.
func TestNonWAVWithoutToolRejected(t *testing.T) {
	h := newHarness(t, domain.EngineNativeBinary)
	h.converter.available = false
	h.facts["/media/talk.mp3"] = probe.FileFacts{Kind: probe.KindMP3}

	h.orch.SubmitFiles([]string{"/media/talk.mp3"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	msg := h.waitFailed(t)
	if msg != "File 'talk.mp3' must be converted to WAV but the ffmpeg tool is not installed." {
		t.Fatalf("message = %q", msg)
	}
	if len(h.adapter.inputsSeen()) != 0 {
		t.Fatal("adapter must not be invoked for rejected input")
	}
}

// TestCanonicalWAVNeverConverted verifies that a 16 kHz 16-bit WAV goes
// straight to the engine even when the engine prefers converted input.
func TestCanonicalWAVNeverConverted(t *testing.T) {
	h := newHarness(t, domain.EngineNativeBinary)
	h.orch.SubmitFiles([]string{"/media/talk.wav"})

	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitFinished(t)

	if started := h.converter.conversionsStarted(); len(started) != 0 {
		t.Fatalf("converter started for %v, want none", started)
	}
	if got := h.adapter.inputsSeen(); len(got) != 1 || got[0] != "/media/talk.wav" {
		t.Fatalf("adapter saw %v", got)
	}
}

// TestConversionSplicesConvertedPath verifies the converting detour: the
// converted file re-enters at the queue front and feeds the engine.
func TestConversionSplicesConvertedPath(t *testing.T) {
	h := newHarness(t, domain.EngineNativeBinary)
	h.facts["/media/talk.mp3"] = probe.FileFacts{Kind: probe.KindMP3}
	h.converter.outcome = convert.Outcome{OK: true, OutputPath: "/media/talk.wav"}

	h.orch.SubmitFiles([]string{"/media/talk.mp3"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitFinished(t)

	if started := h.converter.conversionsStarted(); len(started) != 1 || started[0] != "/media/talk.mp3" {
		t.Fatalf("conversions = %v", started)
	}
	if got := h.adapter.inputsSeen(); len(got) != 1 || got[0] != "/media/talk.wav" {
		t.Fatalf("adapter saw %v, want the converted file", got)
	}
}

// TestCancelDuringConversionCompletion verifies a cancel that lands as a
// conversion finishes goes straight to cancelled: the status never
// returns to processing and the adapter is never dispatched.
func TestCancelDuringConversionCompletion(t *testing.T) {
	h := newHarness(t, domain.EngineNativeBinary)
	h.facts["/media/talk.mp3"] = probe.FileFacts{Kind: probe.KindMP3}
	h.converter.outcome = convert.Outcome{OK: true, OutputPath: "/media/talk.wav"}
	h.converter.gate = make(chan struct{})

	h.orch.SubmitFiles([]string{"/media/talk.mp3"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(h.converter.conversionsStarted()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("conversion never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.orch.CancelRun(); err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	close(h.converter.gate)
	h.waitCancelled(t)

	sawCancelling := false
	for _, event := range h.bus.Since(0) {
		if event.Type != jobs.EventTypeStatus {
			continue
		}
		if event.Status == domain.RunStatusCancelling {
			sawCancelling = true
			continue
		}
		if sawCancelling && event.Status == domain.RunStatusProcessing {
			t.Fatal("status returned to processing after cancel was requested")
		}
	}
	if !sawCancelling {
		t.Fatal("no cancelling status event observed")
	}
	if got := h.adapter.inputsSeen(); len(got) != 0 {
		t.Fatalf("adapter saw %v, want no dispatch", got)
	}
}

// TestConvertedFileReused verifies that an existing canonical converted
// file is reused instead of re-encoding.
func TestConvertedFileReused(t *testing.T) {
	h := newHarness(t, domain.EngineNativeBinary)
	h.facts["/media/talk.mp3"] = probe.FileFacts{Kind: probe.KindMP3}
	h.exists["/media/talk.wav"] = true

	h.orch.SubmitFiles([]string{"/media/talk.mp3"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitFinished(t)

	if started := h.converter.conversionsStarted(); len(started) != 0 {
		t.Fatalf("conversions = %v, want none", started)
	}
	if got := h.adapter.inputsSeen(); len(got) != 1 || got[0] != "/media/talk.wav" {
		t.Fatalf("adapter saw %v, want the reused converted file", got)
	}
}

// TestConversionFailureEndsRun verifies a failed conversion surfaces its
// message and returns to idle.
func TestConversionFailureEndsRun(t *testing.T) {
	h := newHarness(t, domain.EngineNativeBinary)
	h.facts["/media/talk.mp3"] = probe.FileFacts{Kind: probe.KindMP3}
	h.converter.outcome = convert.Outcome{Message: "ffmpeg conversion failed: invalid data"}

	h.orch.SubmitFiles([]string{"/media/talk.mp3"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if msg := h.waitFailed(t); msg != "ffmpeg conversion failed: invalid data" {
		t.Fatalf("message = %q", msg)
	}
	if status := h.orch.CurrentStatus(); status != domain.RunStatusIdle {
		t.Fatalf("status = %s, want idle", status)
	}
}

// TestShortClipAutoDetectRejected verifies the 30-second language
// detection gate fires before converter and engine.
func TestShortClipAutoDetectRejected(t *testing.T) {
	h := newHarness(t, domain.EngineNativeBinary)
	h.facts["/media/clip.wav"] = probe.FileFacts{Kind: probe.KindWAV, IsWAV: true, SampleRate: 16000, BitDepth: 16, Duration: 12}

	settings := h.settings()
	settings.Language = "auto"

	h.orch.SubmitFiles([]string{"/media/clip.wav"})
	if err := h.orch.StartRun(settings); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	msg := h.waitFailed(t)
	if msg != "File 'clip.wav' is only 12 seconds long. Language detection requires at least 30 seconds of audio; select a language instead." {
		t.Fatalf("message = %q", msg)
	}
	if len(h.adapter.inputsSeen()) != 0 || len(h.converter.conversionsStarted()) != 0 {
		t.Fatal("short clip must be rejected before converter and engine")
	}
}

// TestCancelMidRun verifies cancelling while job 2 of 3 is in flight: the
// adapter is told to cancel, pending work is discarded, and the run ends
// with one cancelled notification.
func TestCancelMidRun(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)

	cancelRequested := make(chan struct{})
	var jobs int
	var mu sync.Mutex
	h.adapter.runFn = func(req engine.Request, done func(engine.Result)) {
		mu.Lock()
		jobs++
		second := jobs == 2
		mu.Unlock()

		if !second {
			done(engine.Result{Succeeded: true, OutputPath: req.OutputPath})
			return
		}
		go func() {
			if err := h.orch.CancelRun(); err != nil {
				t.Errorf("CancelRun: %v", err)
			}
			close(cancelRequested)
		}()
		<-cancelRequested
		done(engine.Result{Cancelled: true})
	}

	h.orch.SubmitFiles([]string{"/media/a.wav", "/media/b.wav", "/media/c.wav"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitCancelled(t)

	if !h.adapter.wasCancelled() {
		t.Fatal("adapter RequestCancel not invoked")
	}
	if h.queue.Len() != 0 {
		t.Fatalf("queue length = %d, want pending work discarded", h.queue.Len())
	}
	if status := h.orch.CurrentStatus(); status != domain.RunStatusIdle {
		t.Fatalf("status = %s, want idle", status)
	}
	if got := h.adapter.inputsSeen(); len(got) != 2 {
		t.Fatalf("adapter saw %v, want jobs 1 and 2 only", got)
	}
}

// TestCancelRunIdempotent verifies a second cancel request is a no-op.
func TestCancelRunIdempotent(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)

	started := make(chan struct{})
	release := make(chan struct{})
	h.adapter.runFn = func(req engine.Request, done func(engine.Result)) {
		close(started)
		<-release
		done(engine.Result{Cancelled: true})
	}

	h.orch.SubmitFiles([]string{"/media/a.wav"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	<-started

	if err := h.orch.CancelRun(); err != nil {
		t.Fatalf("first CancelRun: %v", err)
	}
	if err := h.orch.CancelRun(); err != nil {
		t.Fatalf("second CancelRun: %v", err)
	}
	close(release)
	h.waitCancelled(t)

	select {
	case <-h.cancelled:
		t.Fatal("cancelled notification delivered more than once")
	default:
	}
}

// TestCancelRunIdle verifies cancel without a run is an error.
func TestCancelRunIdle(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)
	if err := h.orch.CancelRun(); err != ErrNoActiveRun {
		t.Fatalf("err = %v, want ErrNoActiveRun", err)
	}
}

// TestStartRunGuards verifies the empty-queue and double-start guards.
func TestStartRunGuards(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)
	if err := h.orch.StartRun(h.settings()); err != ErrQueueEmpty {
		t.Fatalf("err = %v, want ErrQueueEmpty", err)
	}

	release := make(chan struct{})
	h.adapter.runFn = func(req engine.Request, done func(engine.Result)) {
		<-release
		done(engine.Result{Succeeded: true, OutputPath: req.OutputPath})
	}
	h.orch.SubmitFiles([]string{"/media/a.wav"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := h.orch.StartRun(h.settings()); err != ErrRunActive {
		t.Fatalf("err = %v, want ErrRunActive", err)
	}
	close(release)
	h.waitFinished(t)
}

// TestStartRunDowngradesFormat verifies a stale format selection falls
// back to VTT for an engine that cannot write it.
func TestStartRunDowngradesFormat(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)
	h.orch.SubmitFiles([]string{"/media/a.wav"})

	settings := h.settings()
	settings.OutputFormat = domain.FormatTSV
	if err := h.orch.StartRun(settings); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitFinished(t)

	if got := h.adapter.requests[0].OutputFormat; got != domain.FormatVTT {
		t.Fatalf("format = %s, want vtt", got)
	}
}

// TestOverwriteSkipAdvances verifies that declining an overwrite skips the
// job without failing the run, and that NoToAll suppresses later prompts.
func TestOverwriteSkipAdvances(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)
	h.exists["/media/a.vtt"] = true
	h.exists["/media/c.vtt"] = true

	var prompts int
	h.orch.callbacks.ConfirmOverwrite = func(path string, remaining int) domain.OverwriteDecision {
		prompts++
		return domain.OverwriteNoToAll
	}

	h.orch.SubmitFiles([]string{"/media/a.wav", "/media/b.wav", "/media/c.wav"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitFinished(t)

	if prompts != 1 {
		t.Fatalf("prompts = %d, want 1 (NoToAll is sticky)", prompts)
	}
	if got := h.adapter.inputsSeen(); len(got) != 1 || got[0] != "/media/b.wav" {
		t.Fatalf("adapter saw %v, want only the collision-free file", got)
	}
}

// TestUnsupportedFileTypeRejected verifies the content whitelist check.
func TestUnsupportedFileTypeRejected(t *testing.T) {
	h := newHarness(t, domain.EngineCloudAPI)
	h.facts["/media/notes.pdf"] = probe.FileFacts{Kind: probe.KindUnknown}

	h.orch.SubmitFiles([]string{"/media/notes.pdf"})
	if err := h.orch.StartRun(h.settings()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if msg := h.waitFailed(t); msg != "Unsupported file type: 'notes.pdf'." {
		t.Fatalf("message = %q", msg)
	}
}

// TestInsecureWebserviceDeclined verifies that declining the plain-http
// prompt cancels the run before any job is processed.
func TestInsecureWebserviceDeclined(t *testing.T) {
	h := newHarness(t, domain.EngineRemoteWebservice)
	h.orch.callbacks.ConfirmInsecureURL = func(url string) bool { return false }

	settings := h.settings()
	settings.WebServiceURL = "http://localhost:9000"

	h.orch.SubmitFiles([]string{"/media/a.wav"})
	if err := h.orch.StartRun(settings); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	h.waitCancelled(t)

	if len(h.adapter.inputsSeen()) != 0 {
		t.Fatal("no job should run after declining the insecure URL")
	}
}

// TestInvalidWebserviceURLFails verifies URL validation halts the run.
func TestInvalidWebserviceURLFails(t *testing.T) {
	h := newHarness(t, domain.EngineRemoteWebservice)

	settings := h.settings()
	settings.WebServiceURL = "not a url"

	h.orch.SubmitFiles([]string{"/media/a.wav"})
	if err := h.orch.StartRun(settings); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if msg := h.waitFailed(t); msg == "" {
		t.Fatal("want a validation message")
	}
}

// TestArtifactPath verifies the artifact naming rule.
func TestArtifactPath(t *testing.T) {
	if got := artifactPath("/media/talk.wav", domain.FormatVTT); got != "/media/talk.vtt" {
		t.Fatalf("artifactPath = %q", got)
	}
	if got := artifactPath("/media/talk_converted.wav", domain.FormatJSON); got != "/media/talk_converted.json" {
		t.Fatalf("artifactPath = %q", got)
	}
}

// TestFormatDuration verifies the h/m/s phrasing.
func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{2*time.Minute + 3*time.Second, "2m 3s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Fatalf("formatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
