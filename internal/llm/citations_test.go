package llm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gemchat/gemchat-go/internal/chat"
)

func TestExtractCitations_OrderAndDedup(t *testing.T) {
	text := "See [Go docs](https://go.dev/doc) and [memory model](https://go.dev/ref/mem), " +
		"also [Go docs again](https://go.dev/doc)."

	got := extractCitations(text)
	require.Equal(t, []chat.GroundingSource{
		{Title: "Go docs", URI: "https://go.dev/doc"},
		{Title: "memory model", URI: "https://go.dev/ref/mem"},
	}, got)
}

func TestExtractCitations_IgnoresNonWebLinks(t *testing.T) {
	require.Nil(t, extractCitations("plain text, [not a link], (just parens)"))
	require.Nil(t, extractCitations("[relative](/local/path) and [mail](mailto:a@b.c)"))
}

func TestCitationTracker_EmitsSnapshotOnlyOnChange(t *testing.T) {
	var tr citationTracker

	// Link syntax split across deltas: no snapshot until it completes.
	require.Nil(t, tr.update("According to [the "))
	require.Nil(t, tr.update("docs](https://exa"))
	got := tr.update("mple.com/docs) it works.")
	require.Equal(t, []chat.GroundingSource{{Title: "the docs", URI: "https://example.com/docs"}}, got)

	// Text without new citations carries no grounding metadata.
	require.Nil(t, tr.update(" More prose."))

	// A second citation yields a full replacement snapshot.
	got = tr.update(" See also [more](https://example.com/more).")
	require.Equal(t, []chat.GroundingSource{
		{Title: "the docs", URI: "https://example.com/docs"},
		{Title: "more", URI: "https://example.com/more"},
	}, got)
}

func TestCitationTracker_EmptyDeltaIsNoOp(t *testing.T) {
	var tr citationTracker
	require.Nil(t, tr.update(""))
}
