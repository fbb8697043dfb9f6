package highlight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var tag = Annotator{Open: "<mark>", Close: "</mark>"}

func TestAnnotateCaseInsensitive(t *testing.T) {
	got := tag.Annotate("https://GitHub.com/github", []string{"github"})
	require.Equal(t, "https://<mark>GitHub</mark>.com/<mark>github</mark>", got)
}

func TestAnnotateEscapesMetacharacters(t *testing.T) {
	got := Markdown.Annotate("a.b axb (c)", []string{"a.b", "(c)"})
	require.Equal(t, "**a.b** axb **(c)**", got)
}

func TestAnnotateIdempotent(t *testing.T) {
	terms := []string{"mark", "hub", "github.com"}
	for _, text := range []string{
		"https://github.com/mark/hub",
		"",
		"nothing to see",
	} {
		once := tag.Annotate(text, terms)
		twice := tag.Annotate(once, terms)
		require.Equal(t, once, twice, "text %q", text)
	}
}

func TestAnnotateMarkerTextNotMatched(t *testing.T) {
	// "mark" must not match inside the markup added for "hub".
	got := tag.Annotate("hub", []string{"hub", "mark"})
	require.Equal(t, "<mark>hub</mark>", got)
	require.Equal(t, got, tag.Annotate(got, []string{"hub", "mark"}))
}

func TestAnnotateLongestFirst(t *testing.T) {
	require.Equal(t, "**github**", Markdown.Annotate("github", []string{"git", "github"}))
}

func TestAnnotateNoTermsStrips(t *testing.T) {
	marked := tag.Annotate("example.com", []string{"example"})
	require.Equal(t, "example.com", tag.Annotate(marked, nil))
	require.Equal(t, "example.com", tag.Annotate(marked, []string{"  ", ""}))
}

func TestSegments(t *testing.T) {
	a := Annotator{Open: "\x00", Close: "\x01"}
	marked := a.Annotate("go.dev/play and go", []string{"go"})
	require.Equal(t, []Segment{
		{Text: "go", Match: true},
		{Text: ".dev/play and "},
		{Text: "go", Match: true},
	}, a.Segments(marked))
	require.Nil(t, a.Segments(""))
	require.Equal(t, []Segment{{Text: "plain"}}, a.Segments("plain"))
}
