package apimodels

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type AnalyzeRequest struct {
	// Filepath is the backend-side path of the uploaded image
	Filepath string `json:"filepath"`
}

type TranslateRequest struct {
	// Text to translate
	Text string `json:"text"`

	// Target language codes, e.g. "te", "hi"
	Languages []string `json:"languages"`
}

type TranslateResponse struct {
	Original     string         `json:"original,omitempty"`
	Translations TranslationMap `json:"translations"`
}

type SpeakRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type SpeakResponse struct {
	Success bool `json:"success"`

	// AudioFile is a bare file name, never a path
	AudioFile string `json:"audio_file,omitempty"`
	Error     string `json:"error,omitempty"`
}

type SaveResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UploadResponse is the backend's answer to a stored upload. Filepath is the
// value to pass to analysis.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Filepath string `json:"filepath,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HandoffRequest carries the two values the upload flow hands to the
// results view. AnalysisResults is kept verbatim.
type HandoffRequest struct {
	AnalysisResults json.RawMessage `json:"analysisResults"`
	ImagePath       string          `json:"imagePath"`
}

type SpeakBatchRequest struct {
	Translations TranslationMap `json:"translations"`
}

// ActionResponse is returned to script callers of the results actions.
type ActionResponse struct {
	Success  bool   `json:"success"`
	Alert    string `json:"alert,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Translation is one entry of a TranslationMap.
type Translation struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// TranslationMap maps language codes to translated text. It encodes as a
// JSON object and keeps the key order of the document it was decoded from.
type TranslationMap []Translation

func (m *TranslationMap) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*m = nil
		return nil
	}
	keys, members, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("translations: %w", err)
	}
	out := make(TranslationMap, 0, len(keys))
	for _, key := range keys {
		text, ok := asString(members[key])
		if !ok {
			return fmt.Errorf("translations: value for %q is not a string", key)
		}
		out = append(out, Translation{Language: key, Text: text})
	}
	*m = out
	return nil
}

func (m TranslationMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Language)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(t.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
