package probe

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// Kind is the media container family identified by content sniffing.
type Kind string

const (
	KindUnknown Kind = ""
	KindWAV     Kind = "wav"
	KindMP3     Kind = "mp3"
	KindMP4     Kind = "mp4"
	KindAIFF    Kind = "aiff"
	KindMPEG    Kind = "mpeg"
	KindAVI     Kind = "avi"
	KindWMV     Kind = "wmv"
	KindWebM    Kind = "webm"
	KindOgg     Kind = "ogg"
	KindFLAC    Kind = "flac"
)

// MIMEHint returns the MIME type reported to remote engines for this kind.
func (k Kind) MIMEHint() string {
	switch k {
	case KindWAV:
		return "audio/wav"
	case KindMP4:
		return "video/mp4"
	default:
		return "audio/mpeg"
	}
}

// FileFacts describes the container and, for WAV content, the audio header.
type FileFacts struct {
	Kind       Kind
	IsWAV      bool
	SampleRate int
	BitDepth   int
	Duration   float64
}

// CanonicalWAV reports whether the content is already in the 16 kHz, 16-bit
// PCM format required by the local engines. Callers treat anything else,
// including a zero FileFacts from unreadable input, as needing conversion.
func (f FileFacts) CanonicalWAV() bool {
	return f.IsWAV && f.SampleRate == 16000 && f.BitDepth == 16
}

// acceptedKinds are the container families the application accepts as input.
// Mirrors the .wav .mp3 .mp4 .m4a .aiff .mpeg .mov .avi .wmv .webm whitelist.
var acceptedKinds = map[Kind]bool{
	KindWAV:  true,
	KindMP3:  true,
	KindMP4:  true,
	KindAIFF: true,
	KindMPEG: true,
	KindAVI:  true,
	KindWMV:  true,
	KindWebM: true,
}

// asfGUID is the header object GUID that opens ASF/WMV containers.
var asfGUID = []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11}

// Probe inspects the file content and returns its facts. It never fails:
// unreadable or unrecognized input yields a zero FileFacts.
func Probe(path string) FileFacts {
	kind := sniffKind(path)
	facts := FileFacts{Kind: kind}
	if kind != KindWAV {
		return facts
	}

	facts.IsWAV = true
	facts.SampleRate, facts.BitDepth, facts.Duration = wavHeaderFacts(path)
	return facts
}

// Duration returns the audio duration in seconds, or 0 when it cannot be
// determined. Only WAV content carries a decodable duration.
func Duration(path string) float64 {
	return Probe(path).Duration
}

// Acceptable reports whether the file content belongs to a supported
// container family. Extension is never trusted.
func Acceptable(path string) bool {
	return acceptedKinds[sniffKind(path)]
}

// sniffKind identifies the container by magic bytes.
func sniffKind(path string) Kind {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return KindUnknown
	}
	if n < 8 {
		return KindUnknown
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, []byte("RIFF")):
		if n >= 12 && bytes.Equal(header[8:12], []byte("WAVE")) {
			return KindWAV
		}
		if n >= 12 && bytes.Equal(header[8:12], []byte("AVI ")) {
			return KindAVI
		}
		return KindUnknown
	case bytes.HasPrefix(header, []byte("ID3")):
		return KindMP3
	case header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return KindMP3
	case n >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return KindMP4
	case bytes.HasPrefix(header, []byte("FORM")):
		if n >= 12 && (bytes.Equal(header[8:12], []byte("AIFF")) || bytes.Equal(header[8:12], []byte("AIFC"))) {
			return KindAIFF
		}
		return KindUnknown
	case bytes.HasPrefix(header, []byte{0x00, 0x00, 0x01, 0xBA}):
		return KindMPEG
	case bytes.HasPrefix(header, asfGUID):
		return KindWMV
	case bytes.HasPrefix(header, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return KindWebM
	case bytes.HasPrefix(header, []byte("OggS")):
		return KindOgg
	case bytes.HasPrefix(header, []byte("fLaC")):
		return KindFLAC
	default:
		return KindUnknown
	}
}

// wavHeaderFacts decodes sample rate, bit depth, and duration from a WAV
// header. A corrupt header fails softly with zero values.
func wavHeaderFacts(path string) (sampleRate, bitDepth int, duration float64) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if decoder.Err() != nil || decoder.SampleRate == 0 {
		return 0, 0, 0
	}

	sampleRate = int(decoder.SampleRate)
	bitDepth = int(decoder.BitDepth)
	if d, err := decoder.Duration(); err == nil {
		duration = d.Seconds()
	}
	return sampleRate, bitDepth, duration
}
