// Package prompt builds the conversation sent to the conversion
// assistant, including few-shot examples drawn from prior successful
// conversions.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"portforge/internal/assist"
	"portforge/internal/corpus"
	"portforge/internal/logger"
	"portforge/internal/progress"
)

const systemTemplate = `You are porting standalone command-line utilities from %s to %s, one utility at a time.

For each utility you receive the complete %s source. Respond with exactly three parts, in order:
1. A short prose summary of what the utility does and how the port approaches it.
2. One fenced code block containing the complete, self-contained %s program.
3. Prose discussion of anything noteworthy: behavior differences, edge cases, flags not carried over.

Rules:
- Exactly one fenced code block; put alternate snippets in the discussion only if essential.
- The program must be complete and runnable on its own. No placeholders.
- Preserve the utility's observable behavior: flags, exit codes, output format.`

// Embedder is the slice of the assistant embedding client the selector
// needs. Satisfied by assist.Embedder.
type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Builder renders conversion requests.
type Builder struct {
	SourceLanguage string
	TargetLanguage string
	Examples       int
}

// Select picks up to Examples prior conversions as few-shot guidance,
// preferring the ones most similar to the unit's source. Embedding
// faults degrade to recency; they never fail the unit. The returned
// embedding (nil when unavailable) can be stored with the unit's own
// example after a successful conversion.
func (b *Builder) Select(ctx context.Context, store progress.Store, emb Embedder, unit corpus.Unit) ([]progress.Example, []float32) {
	if b.Examples <= 0 {
		return nil, nil
	}

	var vec []float32
	if emb != nil {
		v, err := emb.EmbedSingle(ctx, unit.Source)
		if err != nil {
			logger.Warn("embed %s failed, falling back to recent examples: %v", unit.Name, err)
		} else {
			vec = v
		}
	}

	if vec != nil {
		examples, err := store.NearestExamples(vec, b.Examples)
		if err == nil && len(examples) > 0 {
			return examples, vec
		}
		if err != nil {
			logger.Warn("nearest-example lookup failed for %s: %v", unit.Name, err)
		}
	}

	examples, err := store.RecentExamples(b.Examples)
	if err != nil {
		logger.Warn("recent-example lookup failed for %s: %v", unit.Name, err)
		return nil, vec
	}
	return examples, vec
}

// Build constructs the message list for one conversion: system prompt,
// example exchanges, then the unit itself.
func (b *Builder) Build(unit corpus.Unit, examples []progress.Example) []assist.Message {
	msgs := []assist.Message{{
		Role: "system",
		Content: fmt.Sprintf(systemTemplate,
			b.SourceLanguage, b.TargetLanguage, b.SourceLanguage, b.TargetLanguage),
	}}

	for _, ex := range examples {
		msgs = append(msgs,
			assist.Message{Role: "user", Content: b.request(ex.Name, ex.Source)},
			assist.Message{Role: "assistant", Content: b.exampleResponse(ex)},
		)
	}

	msgs = append(msgs, assist.Message{Role: "user", Content: b.request(unit.Name, unit.Source)})
	return msgs
}

func (b *Builder) request(name, source string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Port the utility %q to %s.\n\n", name, b.TargetLanguage)
	fmt.Fprintf(&sb, "```%s\n", strings.ToLower(b.SourceLanguage))
	sb.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}

func (b *Builder) exampleResponse(ex progress.Example) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Port of %q.\n\n", ex.Name)
	fmt.Fprintf(&sb, "```%s\n", strings.ToLower(b.TargetLanguage))
	sb.WriteString(ex.Code)
	if !strings.HasSuffix(ex.Code, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\nStraightforward translation.\n")
	return sb.String()
}
