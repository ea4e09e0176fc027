// Package extract turns uploaded files into labelled text blocks ready for
// chunking. Plain text and markdown are split on blank lines; RFC 5322 email
// files keep their headers as a separate block.
package extract

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"regexp"
	"strings"

	"docqa/internal/domain"
)

// Extractor reads a single file format into tagged blocks.
type Extractor interface {
	Extract(r io.Reader) ([]domain.Block, error)
}

// ForFilename picks an extractor by file extension.
func ForFilename(name string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown":
		return Text{}, nil
	case ".eml":
		return Email{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidInput, filepath.Ext(name))
	}
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// Text extracts plain text and markdown documents paragraph by paragraph.
type Text struct{}

func (Text) Extract(r io.Reader) ([]domain.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	blocks := splitParagraphs(string(data), "Paragraph")
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: document contains no text", domain.ErrInvalidInput)
	}
	return blocks, nil
}

func splitParagraphs(text, label string) []domain.Block {
	var blocks []domain.Block
	for _, part := range paragraphSplit.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		blocks = append(blocks, domain.Block{
			Text:      part,
			SourceTag: fmt.Sprintf("%s %d", label, len(blocks)+1),
		})
	}
	return blocks
}

// Email extracts RFC 5322 messages. Headers of interest become one block so
// questions about sender or subject stay answerable; the body is split into
// paragraphs like a plain document.
type Email struct{}

var headerFields = []string{"From", "To", "Cc", "Date", "Subject"}

func (Email) Extract(r io.Reader) ([]domain.Block, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing email: %v", domain.ErrInvalidInput, err)
	}

	var hb strings.Builder
	for _, field := range headerFields {
		if v := msg.Header.Get(field); v != "" {
			fmt.Fprintf(&hb, "%s: %s\n", field, v)
		}
	}

	body, err := emailBody(msg)
	if err != nil {
		return nil, err
	}

	var blocks []domain.Block
	if hb.Len() > 0 {
		blocks = append(blocks, domain.Block{Text: strings.TrimSpace(hb.String()), SourceTag: "Email headers"})
	}
	n := 0
	for _, part := range paragraphSplit.Split(body, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n++
		blocks = append(blocks, domain.Block{
			Text:      part,
			SourceTag: fmt.Sprintf("Email body %d", n),
		})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: email contains no text", domain.ErrInvalidInput)
	}
	return blocks, nil
}

// emailBody returns the text content of the message, descending into the
// first text/plain part of a multipart body.
func emailBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		data, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", fmt.Errorf("reading email body: %w", err)
		}
		return string(data), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: email content type: %v", domain.ErrInvalidInput, err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", fmt.Errorf("reading email body: %w", err)
		}
		return string(data), nil
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: reading multipart email: %v", domain.ErrInvalidInput, err)
		}
		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil || strings.HasPrefix(partType, "text/plain") || partType == "" {
			data, err := io.ReadAll(part)
			if err != nil {
				return "", fmt.Errorf("reading multipart email: %w", err)
			}
			return string(data), nil
		}
	}
	return "", fmt.Errorf("%w: email has no text part", domain.ErrInvalidInput)
}
