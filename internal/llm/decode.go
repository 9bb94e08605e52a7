package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const snippetLimit = 160

// DecodeLooseJSON unmarshals a model reply that may wrap its JSON payload in
// markdown code fences or surrounding prose. It tries the raw text first,
// then a fence-stripped variant, then the outermost brace span, and returns
// an error describing the payload when nothing yields valid JSON.
func DecodeLooseJSON(payload string, out any) error {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return fmt.Errorf("decode llm json: empty payload")
	}
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}
	if stripped, ok := stripCodeFence(trimmed); ok {
		if err := json.Unmarshal([]byte(stripped), out); err == nil {
			return nil
		}
	}
	if span, ok := braceSpan(trimmed); ok {
		if err := json.Unmarshal([]byte(span), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("decode llm json: no parseable object in %q", payloadSnippet(trimmed))
}

// stripCodeFence removes a surrounding ``` fence, tolerating an optional
// language tag on the opening line.
func stripCodeFence(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return "", false
	}
	body := strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		tag := strings.TrimSpace(body[:newline])
		if tag == "" || strings.EqualFold(tag, "json") {
			body = body[newline+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body), true
}

// braceSpan returns the text between the first '{' and the last '}'.
func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func payloadSnippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= snippetLimit {
		return text
	}
	return text[:snippetLimit] + "..."
}
