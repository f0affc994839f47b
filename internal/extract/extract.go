// Package extract turns uploaded source files (PDF, Word, PowerPoint, plain
// text) into plain text that can be fed to briefings and reviews.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPDFPages limits the number of pages to process
	MaxPDFPages = 100

	// MaxSlides limits the number of slides to process
	MaxSlides = 300

	// MaxTextSize limits the extracted text size (1MB)
	MaxTextSize = 1024 * 1024
)

// Format is a supported source file format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatText Format = "text"
)

// ErrUnsupportedFormat is returned for files that are not PDF, DOCX, PPTX or text
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Result is the text pulled out of a file
type Result struct {
	Format    Format `json:"format"`
	Text      string `json:"text"`
	Pages     int    `json:"pages"`
	WordCount int    `json:"word_count"`
	Truncated bool   `json:"truncated"`
}

var mimeFormats = map[string]Format{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"text/plain":    FormatText,
	"text/markdown": FormatText,
}

var extFormats = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".pptx": FormatPPTX,
	".txt":  FormatText,
	".md":   FormatText,
}

// DetectFormat picks the format from the MIME type, then the file extension
func DetectFormat(filename, mimeType string) (Format, error) {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if f, ok := mimeFormats[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
		return f, nil
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

// Extract returns the plain text of data
func Extract(filename, mimeType string, data []byte) (*Result, error) {
	format, err := DetectFormat(filename, mimeType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s is empty", filename)
	}

	var result *Result
	switch format {
	case FormatPDF:
		result, err = extractPDF(data)
	case FormatDOCX:
		result, err = extractDOCX(data)
	case FormatPPTX:
		result, err = extractPPTX(data)
	default:
		result, err = extractPlain(data)
	}
	if err != nil {
		return nil, err
	}

	result.Format = format
	result.Text, result.Truncated = limitSize(result.Text)
	result.WordCount = countWords(result.Text)
	return result, nil
}

func extractPlain(data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("text file is not valid UTF-8")
	}
	return &Result{Text: cleanText(string(data)), Pages: 1}, nil
}

// limitSize cuts text at MaxTextSize without splitting a rune
func limitSize(text string) (string, bool) {
	if len(text) <= MaxTextSize {
		return text, false
	}
	cut := MaxTextSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n... [Content truncated]", true
}

// cleanText removes null bytes, collapses runs of blanks and trims blank lines
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(normalizeWhitespace(text), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// normalizeWhitespace keeps newlines and turns other whitespace runs into one space
func normalizeWhitespace(text string) string {
	var result strings.Builder
	lastWasSpace := false

	for _, r := range text {
		switch {
		case r == '\n':
			result.WriteRune('\n')
			lastWasSpace = false
		case unicode.IsSpace(r):
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		default:
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// countWords counts runs of letters and digits
func countWords(text string) int {
	count := 0
	inWord := false

	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			if inWord {
				count++
				inWord = false
			}
		} else {
			inWord = true
		}
	}

	if inWord {
		count++
	}
	return count
}
