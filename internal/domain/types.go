package domain

// EngineKind selects which speech-recognition backend performs a run.
type EngineKind string

const (
	EngineLocalModel       EngineKind = "local-model"
	EngineNativeBinary     EngineKind = "native-binary"
	EngineLocalModelFast   EngineKind = "local-model-fast"
	EngineLocalModelAccel  EngineKind = "local-model-accelerated"
	EngineRemoteWebservice EngineKind = "remote-webservice"
	EngineCloudAPI         EngineKind = "cloud-api"
)

// KnownEngines lists every selectable backend in display order.
var KnownEngines = []EngineKind{
	EngineLocalModel,
	EngineNativeBinary,
	EngineLocalModelFast,
	EngineLocalModelAccel,
	EngineRemoteWebservice,
	EngineCloudAPI,
}

// Valid reports whether e names a known backend.
func (e EngineKind) Valid() bool {
	for _, known := range KnownEngines {
		if e == known {
			return true
		}
	}
	return false
}

// TaskKind is the recognition task requested from the backend.
type TaskKind string

const (
	TaskTranscribe TaskKind = "transcribe"
	TaskTranslate  TaskKind = "translate"
)

// OutputFormat identifies the artifact format written next to the source
// file. The enum value doubles as the artifact extension without the dot.
type OutputFormat string

const (
	FormatVTT  OutputFormat = "vtt"
	FormatSRT  OutputFormat = "srt"
	FormatJSON OutputFormat = "json"
	FormatTSV  OutputFormat = "tsv"
	FormatLRC  OutputFormat = "lrc"
	FormatText OutputFormat = "txt"
)

// Extension returns the artifact file extension including the leading dot.
func (f OutputFormat) Extension() string {
	return "." + string(f)
}

// SupportedOutputFormats reports which artifact formats the backend can
// write. TSV and LRC exist only for the native binary.
func (e EngineKind) SupportedOutputFormats() []OutputFormat {
	switch e {
	case EngineNativeBinary:
		return []OutputFormat{FormatText, FormatVTT, FormatSRT, FormatJSON, FormatTSV, FormatLRC}
	case EngineLocalModelFast:
		return []OutputFormat{FormatText, FormatVTT, FormatSRT}
	default:
		return []OutputFormat{FormatText, FormatVTT, FormatSRT, FormatJSON}
	}
}

// SupportsOutputFormat reports whether the backend can write format f.
func (e EngineKind) SupportsOutputFormat(f OutputFormat) bool {
	for _, supported := range e.SupportedOutputFormats() {
		if f == supported {
			return true
		}
	}
	return false
}

// EffectiveOutputFormat downgrades f to VTT when the backend cannot write
// it, so switching engines never leaves an unusable format selected.
func EffectiveOutputFormat(e EngineKind, f OutputFormat) OutputFormat {
	if e.SupportsOutputFormat(f) {
		return f
	}
	return FormatVTT
}

// RunStatus is the orchestrator's processing state. There is exactly one
// run at a time; the initial and terminal state is idle.
type RunStatus string

const (
	RunStatusIdle       RunStatus = "idle"
	RunStatusConverting RunStatus = "converting"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCancelling RunStatus = "cancelling"
)

// OverwriteDecision is one answer to the per-file overwrite prompt.
type OverwriteDecision string

const (
	OverwriteYes      OverwriteDecision = "yes"
	OverwriteNo       OverwriteDecision = "no"
	OverwriteYesToAll OverwriteDecision = "yes-to-all"
	OverwriteNoToAll  OverwriteDecision = "no-to-all"
)

// OverwritePolicy is the run-scoped overwrite answer. It starts at ask for
// every run and becomes sticky once the user answers with a ToAll decision.
type OverwritePolicy string

const (
	OverwriteAsk    OverwritePolicy = "ask"
	OverwriteAlways OverwritePolicy = "always"
	OverwriteNever  OverwritePolicy = "never"
)

// Apply folds one prompt decision into the policy. It returns the policy
// for subsequent files and whether the pending file may be written.
func (p OverwritePolicy) Apply(d OverwriteDecision) (OverwritePolicy, bool) {
	switch d {
	case OverwriteYesToAll:
		return OverwriteAlways, true
	case OverwriteNoToAll:
		return OverwriteNever, false
	case OverwriteYes:
		return p, true
	default:
		return p, false
	}
}

// Settings contains user-selectable configuration. The orchestrator takes
// an immutable snapshot at run start; edits apply to the next run.
type Settings struct {
	Engine        EngineKind   `json:"engine"`
	OutputFormat  OutputFormat `json:"outputFormat"`
	Language      string       `json:"language"`
	Task          TaskKind     `json:"task"`
	Model         string       `json:"model"`
	ModelDir      string       `json:"modelDir"`
	FFmpegPath    string       `json:"ffmpegPath"`
	Threads       int          `json:"threads"`
	WebServiceURL string       `json:"webServiceUrl"`
	APIKey        string       `json:"apiKey"`
}

// Job tracks one input file through conversion and recognition.
type Job struct {
	SourcePath  string `json:"sourcePath"`
	WorkingPath string `json:"workingPath"`
	OutputPath  string `json:"outputPath"`
}
