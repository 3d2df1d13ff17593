package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/go-mcp"
)

const promptPreviewLimit = 20

var promptCompletions = map[string][]string{
	"count": {"3", "5", "10"},
}

func buildPromptList() []mcp.Prompt {
	return []mcp.Prompt{
		{
			Name: "suggest_random_book",
			Description: "Suggest a random book from the library. " +
				"The suggestion should include the title, author, and a brief description.",
		},
		{
			Name:        "suggest_book_title_by_abstract",
			Description: "Suggest a memorable, descriptive title for a book based on the following abstract.",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "abstract",
					Description: "The abstract of the book.",
					Required:    true,
				},
			},
		},
		{
			Name:        "analyze_book",
			Description: "Analyze a book based on its content and user query.",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "book",
					Description: "The book to analyze.",
					Required:    true,
				},
				{
					Name:        "query",
					Description: "The query for analysis.",
					Required:    true,
				},
			},
		},
		{
			Name:        "recommend_books",
			Description: "Recommend books for a reader based on their stated preferences.",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "preferences",
					Description: "The reader's preferences.",
					Required:    true,
				},
				{
					Name:        "count",
					Description: "The number of books to recommend.",
				},
			},
		},
	}
}

// ListPrompts implements mcp.PromptServer interface.
func (s *Server) ListPrompts(
	context.Context,
	mcp.ListPromptsParams,
	mcp.ProgressReporter,
	mcp.RequestClientFunc,
) (mcp.ListPromptResult, error) {
	s.log("ListPrompts", mcp.LogLevelDebug)

	return mcp.ListPromptResult{
		Prompts: s.prompts,
	}, nil
}

// GetPrompt implements mcp.PromptServer interface. Required arguments are
// checked against the prompt declaration before any content is generated.
func (s *Server) GetPrompt(
	_ context.Context,
	params mcp.GetPromptParams,
	_ mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.GetPromptResult, error) {
	s.log(fmt.Sprintf("GetPrompt: %s", params.Name), mcp.LogLevelDebug)

	var prompt mcp.Prompt
	found := false
	for _, p := range s.prompts {
		if p.Name == params.Name {
			prompt = p
			found = true
			break
		}
	}
	if !found {
		return mcp.GetPromptResult{}, fmt.Errorf("Prompt '%s' not found.", params.Name)
	}

	args := params.Arguments
	if args == nil {
		args = map[string]string{}
	}
	for _, arg := range prompt.Arguments {
		if _, ok := args[arg.Name]; !ok && arg.Required {
			return mcp.GetPromptResult{}, fmt.Errorf("Missing required argument: %s", arg.Name)
		}
	}

	switch params.Name {
	case "suggest_random_book":
		return s.suggestRandomBookPrompt(prompt), nil
	case "suggest_book_title_by_abstract":
		return titleByAbstractPrompt(prompt, args["abstract"]), nil
	case "analyze_book":
		return analyzeBookPrompt(prompt, args["book"], args["query"])
	case "recommend_books":
		return s.recommendBooksPrompt(prompt, args), nil
	}

	return mcp.GetPromptResult{}, fmt.Errorf("Prompt '%s' is not implemented.", params.Name)
}

// CompletesPrompt implements mcp.PromptServer interface.
func (s *Server) CompletesPrompt(
	_ context.Context,
	params mcp.CompletesCompletionParams,
	_ mcp.RequestClientFunc,
) (mcp.CompletionResult, error) {
	s.log(fmt.Sprintf("CompletesPrompt: %s", params.Ref.Name), mcp.LogLevelDebug)

	candidates, ok := promptCompletions[params.Argument.Name]
	if !ok {
		return mcp.CompletionResult{}, nil
	}

	return completionResult(candidates, params.Argument.Value), nil
}

func (s *Server) suggestRandomBookPrompt(prompt mcp.Prompt) mcp.GetPromptResult {
	text := "Suggest a random book from the library. " +
		"The suggestion should include the title, author, and a brief description."

	if book, ok := s.randomBook(); ok {
		text = fmt.Sprintf("%s Here is a candidate: '%s' by %s.", text, book.Title, book.Author)
	} else {
		text += " The library is currently empty, so suggest a well-known classic instead."
	}

	return userPromptResult(prompt.Description, text)
}

func (s *Server) randomBook() (Book, bool) {
	count := s.store.Count()
	if count == 0 {
		return Book{}, false
	}

	book, err := s.store.BookByIndex(rand.IntN(count))
	if err != nil {
		return Book{}, false
	}

	return book, true
}

func titleByAbstractPrompt(prompt mcp.Prompt, abstract string) mcp.GetPromptResult {
	text := "Suggest a memorable, descriptive title for a book based on the following abstract: " + abstract

	return userPromptResult(prompt.Description, text)
}

func analyzeBookPrompt(prompt mcp.Prompt, bookJSON, query string) (mcp.GetPromptResult, error) {
	var book any
	if err := json.Unmarshal([]byte(bookJSON), &book); err != nil {
		return mcp.GetPromptResult{}, errors.New("Invalid book JSON format")
	}

	compact, err := json.Marshal(book)
	if err != nil {
		return mcp.GetPromptResult{}, err
	}

	return mcp.GetPromptResult{
		Description: prompt.Description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.Content{
					Type: mcp.ContentTypeText,
					Text: "This is the book I want to analyze: " + string(compact),
				},
			},
			{
				Role: mcp.RoleAssistant,
				Content: mcp.Content{
					Type: mcp.ContentTypeText,
					Text: "Sure! Let's analyze this book together. What would you like to know?",
				},
			},
			{
				Role: mcp.RoleUser,
				Content: mcp.Content{
					Type: mcp.ContentTypeText,
					Text: query,
				},
			},
		},
	}, nil
}

func (s *Server) recommendBooksPrompt(prompt mcp.Prompt, args map[string]string) mcp.GetPromptResult {
	count, err := strconv.Atoi(args["count"])
	if err != nil || count <= 0 {
		count = defaultMaxResults
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recommend %d books for a reader with these preferences: %s.", count, args["preferences"])

	books := s.store.All()
	if len(books) > 0 {
		sb.WriteString(" The library already holds:")
		shown := books
		if len(shown) > promptPreviewLimit {
			shown = shown[:promptPreviewLimit]
		}
		for _, b := range shown {
			fmt.Fprintf(&sb, "\n- '%s' by %s", b.Title, b.Author)
		}
		if len(books) > promptPreviewLimit {
			fmt.Fprintf(&sb, "\n(and %d more not shown)", len(books)-promptPreviewLimit)
		}
	}

	return userPromptResult(prompt.Description, sb.String())
}

func userPromptResult(description, text string) mcp.GetPromptResult {
	return mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.Content{
					Type: mcp.ContentTypeText,
					Text: text,
				},
			},
		},
	}
}
