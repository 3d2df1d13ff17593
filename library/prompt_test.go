package library

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/MegaGrindStone/go-mcp"
)

func getPrompt(t *testing.T, srv *Server, name string, args map[string]string) (mcp.GetPromptResult, error) {
	t.Helper()
	return srv.GetPrompt(context.Background(), mcp.GetPromptParams{
		Name:      name,
		Arguments: args,
	}, nil, nil)
}

func singleUserMessageText(t *testing.T, result mcp.GetPromptResult) string {
	t.Helper()
	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result.Messages))
	}
	if result.Messages[0].Role != mcp.RoleUser {
		t.Errorf("expected user role, got %q", result.Messages[0].Role)
	}
	return result.Messages[0].Content.Text
}

func TestListPromptsCatalog(t *testing.T) {
	srv := newTestServer(t)

	result, err := srv.ListPrompts(context.Background(), mcp.ListPromptsParams{}, nil, nil)
	if err != nil {
		t.Fatalf("failed to list prompts: %v", err)
	}

	var names []string
	for _, p := range result.Prompts {
		names = append(names, p.Name)
	}
	want := []string{
		"suggest_random_book", "suggest_book_title_by_abstract", "analyze_book", "recommend_books",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected prompts %v, got %v", want, names)
	}
}

func TestGetPromptSuggestRandomBookEmpty(t *testing.T) {
	srv := newTestServer(t)

	result, err := getPrompt(t, srv, "suggest_random_book", nil)
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}

	want := "Suggest a random book from the library. The suggestion should include the title, " +
		"author, and a brief description. The library is currently empty, so suggest a well-known classic instead."
	if got := singleUserMessageText(t, result); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGetPromptSuggestRandomBookCandidate(t *testing.T) {
	srv := newTestServer(t)
	mustAdd(t, srv.store, testBook("Dune", "Frank Herbert", "9780441172719"))

	result, err := getPrompt(t, srv, "suggest_random_book", nil)
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}

	got := singleUserMessageText(t, result)
	if !strings.HasSuffix(got, "Here is a candidate: 'Dune' by Frank Herbert.") {
		t.Errorf("expected a candidate from the collection, got %q", got)
	}
}

func TestGetPromptTitleByAbstract(t *testing.T) {
	srv := newTestServer(t)

	result, err := getPrompt(t, srv, "suggest_book_title_by_abstract", map[string]string{
		"abstract": "A desert planet holds the key to interstellar travel.",
	})
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}

	want := "Suggest a memorable, descriptive title for a book based on the following abstract: " +
		"A desert planet holds the key to interstellar travel."
	if got := singleUserMessageText(t, result); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	_, err = getPrompt(t, srv, "suggest_book_title_by_abstract", nil)
	if err == nil || err.Error() != "Missing required argument: abstract" {
		t.Errorf("expected missing argument error, got %v", err)
	}
}

func TestGetPromptAnalyzeBook(t *testing.T) {
	srv := newTestServer(t)

	result, err := getPrompt(t, srv, "analyze_book", map[string]string{
		"book":  `{"title": "Dune", "author": "Frank Herbert"}`,
		"query": "What themes drive the plot?",
	})
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}

	if len(result.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(result.Messages))
	}
	if result.Messages[0].Role != mcp.RoleUser || result.Messages[1].Role != mcp.RoleAssistant ||
		result.Messages[2].Role != mcp.RoleUser {
		t.Errorf("unexpected roles: %q %q %q",
			result.Messages[0].Role, result.Messages[1].Role, result.Messages[2].Role)
	}

	first := result.Messages[0].Content.Text
	if !strings.HasPrefix(first, "This is the book I want to analyze: ") {
		t.Errorf("unexpected first message: %q", first)
	}
	if !strings.Contains(first, `"title":"Dune"`) {
		t.Errorf("expected compact book JSON, got %q", first)
	}
	if got := result.Messages[1].Content.Text; got != "Sure! Let's analyze this book together. What would you like to know?" {
		t.Errorf("unexpected assistant message: %q", got)
	}
	if got := result.Messages[2].Content.Text; got != "What themes drive the plot?" {
		t.Errorf("unexpected final message: %q", got)
	}
}

func TestGetPromptAnalyzeBookInvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	_, err := getPrompt(t, srv, "analyze_book", map[string]string{
		"book":  "not json",
		"query": "What themes drive the plot?",
	})
	if err == nil || err.Error() != "Invalid book JSON format" {
		t.Errorf("expected invalid JSON error, got %v", err)
	}

	_, err = getPrompt(t, srv, "analyze_book", map[string]string{
		"book": `{"title": "Dune"}`,
	})
	if err == nil || err.Error() != "Missing required argument: query" {
		t.Errorf("expected missing argument error, got %v", err)
	}
}

func TestGetPromptRecommendBooks(t *testing.T) {
	srv := newTestServer(t)
	mustAdd(t, srv.store, testBook("Dune", "Frank Herbert", "9780441172719"))
	mustAdd(t, srv.store, testBook("Neuromancer", "William Gibson", "9780441569595"))

	result, err := getPrompt(t, srv, "recommend_books", map[string]string{
		"preferences": "space opera with political intrigue",
		"count":       "3",
	})
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}

	got := singleUserMessageText(t, result)
	if !strings.HasPrefix(got, "Recommend 3 books for a reader with these preferences: space opera with political intrigue.") {
		t.Errorf("unexpected prompt text: %q", got)
	}
	if !strings.Contains(got, "\n- 'Dune' by Frank Herbert") {
		t.Errorf("expected a collection preview, got %q", got)
	}
	if strings.Contains(got, "not shown") {
		t.Errorf("expected no truncation note for a small collection, got %q", got)
	}

	// An absent or unusable count falls back to five.
	result, err = getPrompt(t, srv, "recommend_books", map[string]string{
		"preferences": "noir",
	})
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}
	if got := singleUserMessageText(t, result); !strings.HasPrefix(got, "Recommend 5 books") {
		t.Errorf("expected default count of 5, got %q", got)
	}
}

func TestGetPromptRecommendBooksPreviewCap(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 25; i++ {
		mustAdd(t, srv.store, testBook(
			fmt.Sprintf("Book %d", i),
			fmt.Sprintf("Author %d", i),
			fmt.Sprintf("978000000%04d", i),
		))
	}

	result, err := getPrompt(t, srv, "recommend_books", map[string]string{
		"preferences": "anything",
	})
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}

	got := singleUserMessageText(t, result)
	if lines := strings.Count(got, "\n- '"); lines != 20 {
		t.Errorf("expected 20 preview lines, got %d", lines)
	}
	if !strings.HasSuffix(got, "(and 5 more not shown)") {
		t.Errorf("expected truncation note, got %q", got)
	}
}

func TestGetPromptUnknown(t *testing.T) {
	srv := newTestServer(t)

	_, err := getPrompt(t, srv, "write_review", nil)
	if err == nil || err.Error() != "Prompt 'write_review' not found." {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestCompletesPrompt(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		arg   string
		value string
		want  []string
	}{
		{name: "all counts", arg: "count", value: "", want: []string{"3", "5", "10"}},
		{name: "count prefix", arg: "count", value: "1", want: []string{"10"}},
		{name: "unknown argument", arg: "preferences", value: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.CompletesPrompt(context.Background(), mcp.CompletesCompletionParams{
				Ref:      mcp.CompletionRef{Type: "ref/prompt", Name: "recommend_books"},
				Argument: mcp.CompletionArgument{Name: tt.arg, Value: tt.value},
			}, nil)
			if err != nil {
				t.Fatalf("failed to complete: %v", err)
			}
			if !reflect.DeepEqual(result.Completion.Values, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, result.Completion.Values)
			}
		})
	}
}
