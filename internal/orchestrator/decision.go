package orchestrator

import (
	"github.com/waltervanheuven/speech2text/internal/convert"
	"github.com/waltervanheuven/speech2text/internal/domain"
	"github.com/waltervanheuven/speech2text/internal/probe"
)

// ConversionDecision is the per-job pre-processing verdict, computed fresh
// from the probed file facts and the active engine's input requirements.
type ConversionDecision struct {
	NeedsConversion  bool
	AlreadyConverted bool
	TargetPath       string
}

// decideConversion determines whether the file must be re-encoded to the
// canonical 16 kHz 16-bit WAV before the engine sees it.
//
// A file already in canonical form is never converted. The native binary
// accepts only canonical WAV, so everything else converts. The local-model
// CLI decodes media itself but runs faster on canonical WAV, so it also
// converts when ffmpeg is configured. The remaining engines take the
// source as-is. A previously converted file that exists and probes
// canonical is reused instead of re-encoding.
func (o *Orchestrator) decideConversion(path string, facts probe.FileFacts, engine domain.EngineKind, converterAvailable bool) ConversionDecision {
	if facts.CanonicalWAV() {
		return ConversionDecision{}
	}

	required := engine == domain.EngineNativeBinary
	opportunistic := engine == domain.EngineLocalModel && converterAvailable
	if !required && !opportunistic {
		return ConversionDecision{}
	}

	decision := ConversionDecision{
		NeedsConversion: true,
		TargetPath:      convert.TargetPath(path, "wav"),
	}
	if _, err := o.stat(decision.TargetPath); err == nil && o.probeFile(decision.TargetPath).CanonicalWAV() {
		decision.NeedsConversion = false
		decision.AlreadyConverted = true
	}
	return decision
}
