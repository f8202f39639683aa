package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// cliModel drives one of the Python whisper command line tools. The three
// backends share the same CLI shape and differ only in binary name, flag
// spelling, and supported formats, so one implementation serves all of
// them.
type cliModel struct {
	kind       domain.EngineKind
	binary     string
	dashFlags  bool // mlx_whisper spells --output-format, the others --output_format
	runner     commandRunner
	onProgress func(string)
	worker     worker
}

// NewLocalModel constructs the openai-whisper CLI adapter.
func NewLocalModel(onProgress func(string)) Adapter {
	return &cliModel{
		kind:       domain.EngineLocalModel,
		binary:     "whisper",
		runner:     &execRunner{},
		onProgress: onProgress,
	}
}

// NewFastModel constructs the faster-whisper (whisper-ctranslate2) adapter.
func NewFastModel(onProgress func(string)) Adapter {
	return &cliModel{
		kind:       domain.EngineLocalModelFast,
		binary:     "whisper-ctranslate2",
		runner:     &execRunner{},
		onProgress: onProgress,
	}
}

// NewAccelerated constructs the mlx_whisper adapter for Apple silicon.
func NewAccelerated(onProgress func(string)) Adapter {
	return &cliModel{
		kind:       domain.EngineLocalModelAccel,
		binary:     "mlx_whisper",
		dashFlags:  true,
		runner:     &execRunner{},
		onProgress: onProgress,
	}
}

// Kind identifies the backend.
func (a *cliModel) Kind() domain.EngineKind {
	return a.kind
}

// SupportedOutputFormats lists the formats this backend can write.
func (a *cliModel) SupportedOutputFormats() []domain.OutputFormat {
	return a.kind.SupportedOutputFormats()
}

// RequiresExternalConverter reports whether non-WAV input must be
// converted first. The whisper tools decode media themselves.
func (a *cliModel) RequiresExternalConverter() bool {
	return false
}

// SupportsTranslate reports translate-to-English support.
func (a *cliModel) SupportsTranslate() bool {
	return true
}

// Run begins asynchronous processing and returns immediately.
func (a *cliModel) Run(req Request, done func(Result)) error {
	ctx, err := a.worker.begin()
	if err != nil {
		return err
	}

	go func() {
		result := a.execute(ctx, req)
		a.worker.finish()
		done(result)
	}()
	return nil
}

// RequestCancel interrupts the in-flight worker at its next segment line.
func (a *cliModel) RequestCancel() {
	a.worker.requestCancel()
}

// Shutdown tears down any held worker handle.
func (a *cliModel) Shutdown() {
	a.worker.shutdown()
}

// execute runs the CLI tool and classifies the outcome. The tool downloads
// its own model on first use and writes the output artifact itself.
func (a *cliModel) execute(ctx context.Context, req Request) Result {
	args := a.buildArgs(req)

	cmdResult, runErr := a.runner.Run(ctx, a.binary, args, a.onProgress)
	if ctx.Err() != nil {
		return Result{Cancelled: true}
	}
	if runErr != nil {
		return Result{ErrorMessage: cliFailureMessage(a.binary, cmdResult, runErr)}
	}

	return Result{Succeeded: true, OutputPath: req.OutputPath}
}

// buildArgs builds the CLI invocation. Segment lines stream on stdout and
// are the cancellation checkpoints.
func (a *cliModel) buildArgs(req Request) []string {
	flag := func(name string) string {
		if a.dashFlags {
			return "--" + strings.ReplaceAll(name, "_", "-")
		}
		return "--" + name
	}

	args := []string{
		req.InputPath,
		flag("model"), req.Model,
		flag("task"), string(req.Task),
		flag("output_format"), string(req.OutputFormat),
		flag("output_dir"), filepath.Dir(req.OutputPath),
	}
	if !strings.EqualFold(req.Language, "auto") && req.Language != "" {
		args = append(args, flag("language"), req.Language)
	}
	return args
}

// cliFailureMessage normalizes a CLI tool failure into one line.
func cliFailureMessage(binary string, result commandResult, runErr error) string {
	lines := strings.Split(strings.TrimSpace(result.Stderr), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last != "" {
		return fmt.Sprintf("%s failed: %s", binary, last)
	}
	return fmt.Sprintf("%s failed: %v", binary, runErr)
}
