package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	wordDocumentPart = "word/document.xml"
	slidePrefix      = "ppt/slides/slide"
	maxPartSize      = 32 << 20
)

func extractDOCX(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX: %w", err)
	}

	for _, file := range zr.File {
		if file.Name != wordDocumentPart {
			continue
		}
		text, err := readParagraphs(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read DOCX body: %w", err)
		}
		text = cleanText(text)
		// roughly 500 words per page
		return &Result{Text: text, Pages: countWords(text)/500 + 1}, nil
	}

	return nil, fmt.Errorf("invalid DOCX: missing %s", wordDocumentPart)
}

func extractPPTX(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PPTX: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range zr.File {
		if !strings.HasPrefix(file.Name, slidePrefix) || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file.Name, slidePrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: file})
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("invalid PPTX: no slides found")
	}
	if len(slides) > MaxSlides {
		return nil, fmt.Errorf("PPTX has too many slides (%d), max allowed is %d", len(slides), MaxSlides)
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var sb strings.Builder
	for _, s := range slides {
		text, err := readParagraphs(s.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read slide %d: %w", s.num, err)
		}
		text = cleanText(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Slide %d:\n%s", s.num, text)
	}

	return &Result{Text: sb.String(), Pages: len(slides)}, nil
}

// readParagraphs concatenates the text runs (w:t, a:t) of an OOXML part,
// one line per paragraph (w:p, a:p)
func readParagraphs(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(io.LimitReader(rc, maxPartSize))

	var sb strings.Builder
	var paragraph strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				paragraph.Reset()
			case "t":
				inText = true
			case "tab":
				paragraph.WriteString(" ")
			case "br":
				paragraph.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if paragraph.Len() > 0 {
					sb.WriteString(paragraph.String())
					sb.WriteString("\n")
				}
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}

	return sb.String(), nil
}
