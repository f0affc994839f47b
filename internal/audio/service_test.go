package audio

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubMedia struct {
	prompt   string
	mimeType string
	reply    string
	err      error
}

func (s *stubMedia) GenerateFromMedia(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	s.prompt = prompt
	s.mimeType = mimeType
	return s.reply, s.err
}

// TestSupportedFormats verifies all expected audio and video formats are supported
func TestSupportedFormats(t *testing.T) {
	supportedMimeTypes := []string{
		"audio/mpeg",
		"audio/mp3",
		"audio/wav",
		"audio/x-wav",
		"audio/mp4",
		"audio/webm",
		"audio/ogg",
		"audio/flac",
		"video/mp4",
		"video/quicktime",
	}

	for _, mimeType := range supportedMimeTypes {
		if !IsSupportedFormat(mimeType) {
			t.Errorf("MIME type %s should be supported", mimeType)
		}
	}
}

// TestUnsupportedFormats verifies unsupported formats are rejected
func TestUnsupportedFormats(t *testing.T) {
	unsupportedMimeTypes := []string{
		"image/jpeg",
		"application/pdf",
		"text/plain",
		"audio/midi",
	}

	for _, mimeType := range unsupportedMimeTypes {
		if IsSupportedFormat(mimeType) {
			t.Errorf("MIME type %s should NOT be supported", mimeType)
		}
	}
}

func TestNormalizeMimeType(t *testing.T) {
	tests := []struct {
		declared string
		filename string
		want     string
	}{
		{"audio/ogg; codecs=opus", "", "audio/ogg"},
		{"AUDIO/MPEG", "x.bin", "audio/mpeg"},
		{"application/octet-stream", "meeting.m4a", "audio/mp4"},
		{"", "clip.MOV", "video/quicktime"},
		{"", "notes.txt", ""},
	}

	for _, tt := range tests {
		if got := NormalizeMimeType(tt.declared, tt.filename); got != tt.want {
			t.Errorf("NormalizeMimeType(%q, %q) = %q, want %q", tt.declared, tt.filename, got, tt.want)
		}
	}
}

func TestTranscribe(t *testing.T) {
	media := &stubMedia{reply: "  hello world \n"}
	svc := NewService(media)

	resp, err := svc.Transcribe(context.Background(), &TranscribeRequest{
		Data:     []byte("RIFF...."),
		Filename: "memo.wav",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if resp.Text != "hello world" {
		t.Errorf("Expected trimmed transcript, got %q", resp.Text)
	}
	if media.mimeType != "audio/wav" {
		t.Errorf("Expected audio/wav, got %s", media.mimeType)
	}
	if !strings.Contains(media.prompt, `"en"`) {
		t.Errorf("Prompt should mention the language, got %q", media.prompt)
	}
}

func TestTranscribeRejectsBadInput(t *testing.T) {
	svc := NewService(&stubMedia{reply: "unused"})

	if _, err := svc.Transcribe(context.Background(), &TranscribeRequest{MimeType: "audio/wav"}); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Expected ErrEmptyAudio, got %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), &TranscribeRequest{Data: []byte("x"), MimeType: "image/png"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	big := make([]byte, MaxInlineBytes+1)
	if _, err := svc.Transcribe(context.Background(), &TranscribeRequest{Data: big, MimeType: "audio/wav"}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestTranscribePropagatesModelError(t *testing.T) {
	cause := errors.New("quota")
	svc := NewService(&stubMedia{err: cause})

	_, err := svc.Transcribe(context.Background(), &TranscribeRequest{Data: []byte("x"), MimeType: "audio/mpeg"})
	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped model error, got %v", err)
	}
	if !errors.Is(err, ErrTranscription) {
		t.Errorf("Expected ErrTranscription, got %v", err)
	}
}

func BenchmarkIsSupportedFormat(b *testing.B) {
	for i := 0; i < b.N; i++ {
		IsSupportedFormat("audio/mpeg")
	}
}
