// Package enrich turns raw item context (transcripts, page text, file names)
// into a summary, tags, and category by asking a generative model and
// normalizing whatever shape the reply comes back in.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"curio/internal/llm"
	"curio/internal/logging"
)

const maxTags = 7

// Completer is the slice of the model client this package needs.
type Completer interface {
	CompleteJSON(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Result holds the normalized enrichment fields for one item.
type Result struct {
	Summary  string
	Tags     string
	Category string
}

// EmptyContextResult is returned without calling the model when an item
// produced no usable text to analyze.
func EmptyContextResult() Result {
	return Result{Summary: "Not enough content.", Tags: "", Category: "Uncategorized"}
}

// ErrorResult marks an item whose model call or reply parsing failed.
func ErrorResult() Result {
	return Result{Summary: "Error", Tags: "Error", Category: "Error"}
}

// Enricher produces Results for items using a model completer.
type Enricher struct {
	completer Completer
	logger    *slog.Logger
}

// New constructs an Enricher. A nil logger falls back to a no-op logger.
func New(completer Completer, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enricher{completer: completer, logger: logger}
}

// Enrich summarizes the supplied context text for the named item. An empty
// context short-circuits without a model call. Model or parse failures are
// absorbed into an error Result so a batch keeps moving.
func (e *Enricher) Enrich(ctx context.Context, title, contextText string) Result {
	contextText = strings.TrimSpace(contextText)
	if contextText == "" {
		return EmptyContextResult()
	}

	reply, err := e.completer.CompleteJSON(ctx, "", systemPrompt, userPrompt(title, contextText))
	if err != nil {
		e.logger.Error("model call failed", logging.String("item", title), logging.Error(err))
		return ErrorResult()
	}

	var parsed modelReply
	if err := llm.DecodeLooseJSON(reply, &parsed); err != nil {
		e.logger.Error("unparseable model reply", logging.String("item", title), logging.Error(err))
		return ErrorResult()
	}
	return parsed.normalize()
}

type modelReply struct {
	Summary  string  `json:"summary"`
	Tags     tagList `json:"tags"`
	Category string  `json:"category"`
}

func (r modelReply) normalize() Result {
	result := Result{
		Summary:  strings.TrimSpace(r.Summary),
		Tags:     r.Tags.String(),
		Category: strings.TrimSpace(r.Category),
	}
	if result.Summary == "" {
		result.Summary = "No summary provided."
	}
	if result.Category == "" {
		result.Category = "Uncategorized"
	}
	return result
}

// tagList accepts tags either as a JSON array of strings or as a single
// comma-separated string. Anything else decodes to an empty list.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*t = cleanTags(asList)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*t = cleanTags(strings.Split(asString, ","))
		return nil
	}
	*t = nil
	return nil
}

func (t tagList) String() string {
	return strings.Join(t, ", ")
}

func cleanTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func userPrompt(title, contextText string) string {
	return fmt.Sprintf("Title: %s\n\nContent:\n%s", strings.TrimSpace(title), contextText)
}
