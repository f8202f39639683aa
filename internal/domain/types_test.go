package domain

import "testing"

// TestEffectiveOutputFormatDowngradesToVTT verifies formats the selected
// backend cannot write fall back to VTT while supported ones are kept.
func TestEffectiveOutputFormatDowngradesToVTT(t *testing.T) {
	if got := EffectiveOutputFormat(EngineNativeBinary, FormatTSV); got != FormatTSV {
		t.Fatalf("expected native binary to keep tsv, got %q", got)
	}
	if got := EffectiveOutputFormat(EngineCloudAPI, FormatTSV); got != FormatVTT {
		t.Fatalf("expected cloud api to downgrade tsv to vtt, got %q", got)
	}
	if got := EffectiveOutputFormat(EngineLocalModelFast, FormatJSON); got != FormatVTT {
		t.Fatalf("expected fast engine to downgrade json to vtt, got %q", got)
	}
	if got := EffectiveOutputFormat(EngineLocalModel, FormatJSON); got != FormatJSON {
		t.Fatalf("expected local model to keep json, got %q", got)
	}
}

// TestOverwritePolicyApply verifies sticky and one-shot prompt decisions.
func TestOverwritePolicyApply(t *testing.T) {
	policy, allow := OverwriteAsk.Apply(OverwriteYes)
	if policy != OverwriteAsk || !allow {
		t.Fatalf("yes should allow once and stay ask, got %q allow=%v", policy, allow)
	}

	policy, allow = OverwriteAsk.Apply(OverwriteNo)
	if policy != OverwriteAsk || allow {
		t.Fatalf("no should deny once and stay ask, got %q allow=%v", policy, allow)
	}

	policy, allow = OverwriteAsk.Apply(OverwriteYesToAll)
	if policy != OverwriteAlways || !allow {
		t.Fatalf("yes-to-all should allow and stick, got %q allow=%v", policy, allow)
	}

	policy, allow = OverwriteAsk.Apply(OverwriteNoToAll)
	if policy != OverwriteNever || allow {
		t.Fatalf("no-to-all should deny and stick, got %q allow=%v", policy, allow)
	}
}

// TestOutputFormatExtension verifies the enum value doubles as extension.
func TestOutputFormatExtension(t *testing.T) {
	cases := map[OutputFormat]string{
		FormatVTT:  ".vtt",
		FormatSRT:  ".srt",
		FormatJSON: ".json",
		FormatTSV:  ".tsv",
		FormatLRC:  ".lrc",
		FormatText: ".txt",
	}
	for format, want := range cases {
		if got := format.Extension(); got != want {
			t.Fatalf("extension for %q: got %q want %q", format, got, want)
		}
	}
}

// TestEngineKindValid verifies the backend whitelist.
func TestEngineKindValid(t *testing.T) {
	for _, engine := range KnownEngines {
		if !engine.Valid() {
			t.Fatalf("known engine %q reported invalid", engine)
		}
	}
	if EngineKind("gpu-farm").Valid() {
		t.Fatal("unknown engine reported valid")
	}
}
