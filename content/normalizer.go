// Package content converts heterogeneous user-supplied message content into
// canonical generation input. Clients send plain strings, content-block
// arrays, inline base64 images or data URLs; everything is reduced to a
// closed set of parts plus a textual persistence string for chat history.
package content

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/MT2-0901/nexus-agent/core"
)

// Message is one entry of the inbound conversation payload. Content is left
// untyped because clients send either a string or an array of blocks.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ParsedInput is the normalization result: canonical multimodal content for
// the generation engine and a separate human-readable string for persistence.
// The two are decoupled because stored history must stay textual.
type ParsedInput struct {
	Content         core.Content
	PersistenceText string
}

// DefaultPersistenceText substitutes for image-only messages whose textual
// rendering would otherwise be empty.
const DefaultPersistenceText = "[multimodal-content]"

// ParseLatestUserMessage normalizes the most recent user-authored message,
// scanning the history from the end. It fails when no user message exists.
func ParseLatestUserMessage(messages []Message) (ParsedInput, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(strings.TrimSpace(messages[i].Role), "user") {
			return Normalize(messages[i].Content)
		}
	}
	return ParsedInput{}, fmt.Errorf("no user message found in request")
}

// Normalize reduces raw message content to canonical parts. Supported shapes
// are a plain string and an array of content blocks; anything else is
// rejected.
func Normalize(raw any) (ParsedInput, error) {
	var parts []core.Part
	var chunks []string

	switch v := raw.(type) {
	case string:
		if text := strings.TrimSpace(v); text != "" {
			parts = append(parts, core.TextPart{Text: text})
			chunks = append(chunks, text)
		}
	case []any:
		for _, block := range v {
			p, chunk, err := parseBlock(block)
			if err != nil {
				return ParsedInput{}, err
			}
			if p != nil {
				parts = append(parts, p)
				chunks = append(chunks, chunk)
			}
		}
	default:
		return ParsedInput{}, fmt.Errorf("unsupported message content type %T", raw)
	}

	if len(parts) == 0 {
		return ParsedInput{}, fmt.Errorf("message contains no supported content")
	}

	persistence := strings.TrimSpace(strings.Join(chunks, "\n"))
	if persistence == "" {
		persistence = DefaultPersistenceText
	}

	return ParsedInput{
		Content:         core.Content{Role: "user", Parts: parts},
		PersistenceText: persistence,
	}, nil
}

// parseBlock handles one content block. A nil part with nil error means the
// block was skipped (blank text, image without payload, unsupported scalar,
// unknown block without text).
func parseBlock(block any) (core.Part, string, error) {
	switch b := block.(type) {
	case string:
		return textPart(b)
	case map[string]any:
		blockType, _ := b["type"].(string)
		switch {
		case blockType == "text" || blockType == "input_text":
			return textPart(firstNonBlank(b, "text", "content", "value"))
		case strings.Contains(strings.ToLower(blockType), "image"):
			return parseImageBlock(b)
		default:
			// Untyped or unknown blocks: extract text opportunistically.
			return textPart(firstNonBlank(b, "text", "content", "value"))
		}
	default:
		return nil, "", nil
	}
}

// textPart wraps trimmed text, skipping blank input.
func textPart(raw string) (core.Part, string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, "", nil
	}
	return core.TextPart{Text: text}, text, nil
}

// parseImageBlock extracts MIME type and base64 payload from an image block.
// Payload may come from an explicit field or a data: URL; blocks without any
// payload are skipped rather than rejected.
func parseImageBlock(b map[string]any) (core.Part, string, error) {
	mimeType := firstNonBlank(b, "mimeType", "mediaType", "media_type")
	if mimeType == "" {
		mimeType = "image/png"
	}

	payload := firstNonBlank(b, "data", "base64", "imageBase64")
	if payload == "" {
		if url := firstNonBlank(b, "url", "imageUrl", "image_url"); strings.HasPrefix(url, "data:") {
			header, rest, found := strings.Cut(url, ",")
			if found {
				payload = rest
				if m := dataURLMIME(header); m != "" {
					mimeType = m
				}
			}
		}
	}
	if payload == "" {
		return nil, "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(payload))
	if err != nil {
		return nil, "", fmt.Errorf("decode image payload: %w", err)
	}

	name, _ := b["name"].(string)
	if strings.TrimSpace(name) == "" {
		name = "image"
	}

	part := core.ImagePart{Data: decoded, MIMEType: mimeType, Name: name}
	return part, fmt.Sprintf("[image:%s]", name), nil
}

// dataURLMIME recovers the MIME type from a data: URL header such as
// "data:image/jpeg;base64".
func dataURLMIME(header string) string {
	meta := strings.TrimPrefix(header, "data:")
	if i := strings.Index(meta, ";"); i >= 0 {
		meta = meta[:i]
	}
	return strings.TrimSpace(meta)
}

func firstNonBlank(b map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := b[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
