package llm

import (
	"regexp"
	"strings"

	"github.com/gemchat/gemchat-go/internal/chat"
)

// Search-grounded models cite web results as inline markdown links in the
// response text. Link syntax may be split across deltas, so extraction runs
// over the accumulated text rather than per delta.
var citationPattern = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^)\s]+)\)`)

// citationTracker accumulates streamed text and reports the full citation
// set whenever it changes. A nil return means "no new grounding metadata in
// this chunk"; a non-nil return is a complete snapshot.
type citationTracker struct {
	buf  strings.Builder
	seen int // citation count at the last emitted snapshot
}

func (t *citationTracker) update(delta string) []chat.GroundingSource {
	if delta == "" {
		return nil
	}
	t.buf.WriteString(delta)

	sources := extractCitations(t.buf.String())
	if len(sources) == t.seen {
		return nil
	}
	t.seen = len(sources)
	return sources
}

// extractCitations collects markdown-link citations in order of first
// appearance, deduplicated by URI.
func extractCitations(text string) []chat.GroundingSource {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]chat.GroundingSource, 0, len(matches))
	byURI := make(map[string]bool, len(matches))
	for _, m := range matches {
		uri := m[2]
		if byURI[uri] {
			continue
		}
		byURI[uri] = true
		out = append(out, chat.GroundingSource{Title: m[1], URI: uri})
	}
	return out
}
