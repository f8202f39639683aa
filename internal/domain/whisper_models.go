package domain

// WhisperModelOption describes one downloadable whisper.cpp model preset.
type WhisperModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	SHA1        string `json:"sha1"`
	SizeLabel   string `json:"sizeLabel,omitempty"`
	Description string `json:"description,omitempty"`
	Downloaded  bool   `json:"downloaded"`
	LocalPath   string `json:"localPath,omitempty"`
}

// WhisperModelCatalog lists the built-in whisper.cpp model presets. Digests
// match the files published in the ggerganov/whisper.cpp repository.
var WhisperModelCatalog = []WhisperModelOption{
	{
		ID:          "tiny.en",
		Name:        "Tiny (English)",
		FileName:    "ggml-tiny.en.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
		SHA1:        "c78c86eb1a8faa21b369bcd33207cc90d64ae9df",
		SizeLabel:   "~75 MB",
		Description: "Fastest, English-only model.",
	},
	{
		ID:          "tiny",
		Name:        "Tiny (Multilingual)",
		FileName:    "ggml-tiny.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA1:        "bd577a113a864445d4c299885e0cb97d4ba92b5f",
		SizeLabel:   "~75 MB",
		Description: "Fastest multilingual model.",
	},
	{
		ID:          "base.en",
		Name:        "Base (English)",
		FileName:    "ggml-base.en.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
		SHA1:        "137c40403d78fd54d454da0f9bd998f78703390c",
		SizeLabel:   "~142 MB",
		Description: "Balanced speed/quality, English-only.",
	},
	{
		ID:          "base",
		Name:        "Base (Multilingual)",
		FileName:    "ggml-base.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA1:        "465707469ff3a37a2b9b8d8f89f2f99de7299dac",
		SizeLabel:   "~142 MB",
		Description: "Balanced speed/quality, multilingual.",
	},
	{
		ID:          "small.en",
		Name:        "Small (English)",
		FileName:    "ggml-small.en.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.en.bin",
		SHA1:        "db8a495a91d927739e50b3fc1cc4c6b8f6c2d022",
		SizeLabel:   "~466 MB",
		Description: "Higher quality, English-only.",
	},
	{
		ID:          "small",
		Name:        "Small (Multilingual)",
		FileName:    "ggml-small.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA1:        "55356645c2b361a969dfd0ef2c5a50d530afd8d5",
		SizeLabel:   "~466 MB",
		Description: "Higher quality multilingual model.",
	},
	{
		ID:          "medium.en",
		Name:        "Medium (English)",
		FileName:    "ggml-medium.en.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.en.bin",
		SHA1:        "8c30f0e44ce9560643ebd10bbe50cd20eafd3723",
		SizeLabel:   "~1.5 GB",
		Description: "High quality, English-only.",
	},
	{
		ID:          "medium",
		Name:        "Medium (Multilingual)",
		FileName:    "ggml-medium.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA1:        "fd9727b6e1217c2f614f9b698455c4ffd82463b4",
		SizeLabel:   "~1.5 GB",
		Description: "High quality multilingual model.",
	},
	{
		ID:          "large-v2",
		Name:        "Large v2",
		FileName:    "ggml-large-v2.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v2.bin",
		SHA1:        "0f4c8e34f21cf1a914c59d8b3ce882345ad349d6",
		SizeLabel:   "~2.9 GB",
		Description: "Very high quality multilingual model.",
	},
	{
		ID:          "large-v3",
		Name:        "Large v3",
		FileName:    "ggml-large-v3.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA1:        "ad82bf06a9552db4d208d961d356c2cb1fa2b5af",
		SizeLabel:   "~2.9 GB",
		Description: "Latest large multilingual model.",
	},
	{
		ID:          "large-v3-turbo",
		Name:        "Large v3 Turbo",
		FileName:    "ggml-large-v3-turbo.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
		SHA1:        "4af2b29d7ec73d781377bfd1758ca957a807e941",
		SizeLabel:   "~1.6 GB",
		Description: "Faster large-v3 variant.",
	},
}

// WhisperModelByID resolves a catalog preset by its ID.
func WhisperModelByID(id string) (WhisperModelOption, bool) {
	for _, model := range WhisperModelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return WhisperModelOption{}, false
}
