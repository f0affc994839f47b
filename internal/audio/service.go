package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"strings"

	"agentegen/internal/llm"
)

// MaxInlineBytes is the largest payload sent inline to the model (20 MB request limit)
const MaxInlineBytes = 19 << 20

var (
	ErrEmptyAudio        = errors.New("audio payload is empty")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrTooLarge          = errors.New("audio payload is too large")
	ErrTranscription     = errors.New("transcription failed")
)

// Service transcribes audio and video recordings with a multimodal model
type Service struct {
	media llm.MediaGenerator
}

// NewService creates a transcription service
func NewService(media llm.MediaGenerator) *Service {
	return &Service{media: media}
}

// TranscribeRequest contains parameters for audio transcription
type TranscribeRequest struct {
	Data     []byte
	MimeType string
	Filename string
	Language string // Optional language code (e.g., "en", "es", "fr")
	Prompt   string // Optional hint about names or vocabulary
}

// TranscribeResponse contains the result of transcription
type TranscribeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	MimeType string `json:"mime_type"`
}

// Transcribe returns the transcript of the recording in req
func (s *Service) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	if len(req.Data) > MaxInlineBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(req.Data))
	}

	mimeType := NormalizeMimeType(req.MimeType, req.Filename)
	if !IsSupportedFormat(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	log.Printf("🎵 [AUDIO] Transcribing %s (%d bytes)", mimeType, len(req.Data))

	text, err := s.media.GenerateFromMedia(ctx, buildTranscriptionPrompt(req), req.Data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	text = strings.TrimSpace(text)
	log.Printf("✅ [AUDIO] Transcription successful (%d chars)", len(text))

	return &TranscribeResponse{
		Text:     text,
		Language: req.Language,
		MimeType: mimeType,
	}, nil
}

func buildTranscriptionPrompt(req *TranscribeRequest) string {
	var sb strings.Builder
	sb.WriteString("Transcribe the speech in this recording verbatim. ")
	sb.WriteString("Return only the transcript text, without timestamps or speaker labels.")
	if req.Language != "" {
		fmt.Fprintf(&sb, " The spoken language is %q.", req.Language)
	}
	if req.Prompt != "" {
		sb.WriteString(" Context: ")
		sb.WriteString(req.Prompt)
	}
	return sb.String()
}

// NormalizeMimeType strips parameters from a declared MIME type and falls back
// to the file extension when the client sent a generic type
func NormalizeMimeType(declared, filename string) string {
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}

	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = strings.ToLower(filename[i+1:])
	}
	if byExt, ok := extensionTypes[ext]; ok {
		return byExt
	}
	return mimeType
}

var extensionTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"mpga": "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"webm": "video/webm",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
}

// GetSupportedFormats returns the list of supported file extensions
func GetSupportedFormats() []string {
	return []string{
		"mp3", "mp4", "mpeg", "mpga", "m4a", "wav", "webm", "ogg", "flac", "aac", "mov",
	}
}

// IsSupportedFormat checks if a MIME type is supported for transcription
func IsSupportedFormat(mimeType string) bool {
	supportedTypes := map[string]bool{
		"audio/mpeg":      true,
		"audio/mp3":       true,
		"audio/mp4":       true,
		"audio/x-m4a":     true,
		"audio/aac":       true,
		"audio/wav":       true,
		"audio/x-wav":     true,
		"audio/wave":      true,
		"audio/webm":      true,
		"audio/ogg":       true,
		"audio/flac":      true,
		"video/mp4":       true,
		"video/webm":      true,
		"video/quicktime": true,
		"video/mpeg":      true,
	}
	return supportedTypes[mimeType]
}
