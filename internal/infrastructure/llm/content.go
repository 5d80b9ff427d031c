package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Content is a message body: either plain text or a list of typed blocks.
type Content interface {
	// Text flattens the content into a single string.
	Text() string
	isContent()
}

// TextContent is the plain-string form.
type TextContent string

// ContentBlock is one element of the structured form.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// BlocksContent is the structured form; only text blocks contribute to Text.
type BlocksContent []ContentBlock

func (TextContent) isContent() {}
func (BlocksContent) isContent() {}

func (t TextContent) Text() string { return string(t) }

func (b BlocksContent) Text() string {
	parts := make([]string, 0, len(b))
	for _, block := range b {
		if block.Type != "" && block.Type != "text" {
			continue
		}
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "")
}

// decodeContent accepts a JSON string, an array of blocks, or null.
func decodeContent(raw json.RawMessage) (Content, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("decode text content: %w", err)
		}
		return TextContent(s), nil
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return nil, fmt.Errorf("decode content blocks: %w", err)
		}
		return BlocksContent(blocks), nil
	default:
		return nil, fmt.Errorf("unsupported content shape %q", string(trimmed[:1]))
	}
}

// ContentText extracts text from c, treating nil as empty.
func ContentText(c Content) string {
	if c == nil {
		return ""
	}
	return c.Text()
}
