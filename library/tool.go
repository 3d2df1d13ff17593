package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/go-mcp"
	"github.com/qri-io/jsonschema"
)

var (
	addBookValidator            = jsonschema.Must(string(addBookSchema))
	removeBookValidator         = jsonschema.Must(string(removeBookSchema))
	updateBookValidator         = jsonschema.Must(string(updateBookSchema))
	getNumBooksValidator        = jsonschema.Must(string(getNumBooksSchema))
	searchBooksValidator        = jsonschema.Must(string(searchBooksSchema))
	getStatisticsValidator      = jsonschema.Must(string(getStatisticsSchema))
	getRecommendationsValidator = jsonschema.Must(string(getRecommendationsSchema))
)

func buildToolList(searchEnabled, statsEnabled bool) []mcp.Tool {
	tools := []mcp.Tool{
		{
			Name:        "add_book",
			Description: "Add a book to the library",
			InputSchema: addBookSchema,
		},
		{
			Name:        "remove_book",
			Description: "Remove a book by its ISBN",
			InputSchema: removeBookSchema,
		},
		{
			Name:        "update_book",
			Description: "Update an existing book's details by its ISBN",
			InputSchema: updateBookSchema,
		},
		{
			Name:        "get_num_books",
			Description: "Get the total number of books in the library",
			InputSchema: getNumBooksSchema,
		},
	}

	if searchEnabled {
		tools = append(tools, mcp.Tool{
			Name:        "search_books",
			Description: "Search for books by title, author, tag, or genre",
			InputSchema: searchBooksSchema,
		})
	}
	if statsEnabled {
		tools = append(tools, mcp.Tool{
			Name:        "get_statistics",
			Description: "Get statistics about the library collection",
			InputSchema: getStatisticsSchema,
		})
	}

	tools = append(tools, mcp.Tool{
		Name:        "get_recommendations",
		Description: "Get book recommendations based on a book or reader preferences",
		InputSchema: getRecommendationsSchema,
	})

	return tools
}

// ListTools implements mcp.ToolServer interface.
func (s *Server) ListTools(
	context.Context,
	mcp.ListToolsParams,
	mcp.ProgressReporter,
	mcp.RequestClientFunc,
) (mcp.ListToolsResult, error) {
	s.log("ListTools", mcp.LogLevelDebug)

	return mcp.ListToolsResult{
		Tools: s.tools,
	}, nil
}

// CallTool implements mcp.ToolServer interface. Domain failures such as a
// duplicate ISBN come back as results with IsError set, so the client can
// show them; only unknown tools and broken arguments surface as Go errors.
func (s *Server) CallTool(
	ctx context.Context,
	params mcp.CallToolParams,
	_ mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.CallToolResult, error) {
	s.log(fmt.Sprintf("CallTool: %s", params.Name), mcp.LogLevelDebug)

	switch params.Name {
	case "add_book":
		return s.callAddBook(ctx, params)
	case "remove_book":
		return s.callRemoveBook(ctx, params)
	case "update_book":
		return s.callUpdateBook(ctx, params)
	case "get_num_books":
		return s.callGetNumBooks(ctx, params)
	case "search_books":
		if s.searchEnabled {
			return s.callSearchBooks(ctx, params)
		}
	case "get_statistics":
		if s.statsEnabled {
			return s.callGetStatistics(ctx, params)
		}
	case "get_recommendations":
		return s.callGetRecommendations(ctx, params)
	}

	return mcp.CallToolResult{}, fmt.Errorf("tool not found: %s", params.Name)
}

func (s *Server) callAddBook(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if err := validateArgs(ctx, addBookValidator, params.Arguments); err != nil {
		return errorResult(err.Error()), nil
	}

	var args AddBookArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	stored, err := s.store.Add(args.Book)
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateISBN):
		norm, _ := NormalizeISBN(args.ISBN)
		return errorResult(fmt.Sprintf("Book with ISBN '%s' already exists.", norm)), nil
	case errors.Is(err, ErrCapacityExceeded):
		return errorResult(fmt.Sprintf("The library is full (max %d books).", s.store.MaxBooks())), nil
	default:
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			return errorResult(err.Error()), nil
		}
	}

	s.notifyBooksChanged()
	text := fmt.Sprintf("Book '%s' by %s added to the library.", stored.Title, stored.Author)

	return textResult(appendSaveWarning(text, err)), nil
}

func (s *Server) callRemoveBook(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if err := validateArgs(ctx, removeBookValidator, params.Arguments); err != nil {
		return errorResult(err.Error()), nil
	}

	var args RemoveBookArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	removed, err := s.store.Remove(args.ISBN)
	if errors.Is(err, ErrNotFound) {
		return errorResult(fmt.Sprintf("No book found with ISBN '%s'.", args.ISBN)), nil
	}

	s.notifyBooksChanged()
	text := fmt.Sprintf("Book with ISBN '%s' removed from the library.", removed.ISBN)

	return textResult(appendSaveWarning(text, err)), nil
}

func (s *Server) callUpdateBook(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if err := validateArgs(ctx, updateBookValidator, params.Arguments); err != nil {
		return errorResult(err.Error()), nil
	}

	var args UpdateBookArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	updated, err := s.store.Update(args.ISBN, args.UpdateBook)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return errorResult(fmt.Sprintf("No book found with ISBN '%s'.", args.ISBN)), nil
	default:
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			return errorResult(err.Error()), nil
		}
	}

	s.notifyBooksChanged()
	text := fmt.Sprintf("Book with ISBN '%s' updated.", updated.ISBN)

	return textResult(appendSaveWarning(text, err)), nil
}

func (s *Server) callGetNumBooks(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if err := validateArgs(ctx, getNumBooksValidator, params.Arguments); err != nil {
		return errorResult(err.Error()), nil
	}

	return textResult(strconv.Itoa(s.store.Count())), nil
}

func (s *Server) callSearchBooks(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if err := validateArgs(ctx, searchBooksValidator, params.Arguments); err != nil {
		return errorResult(err.Error()), nil
	}

	var args SearchBooksArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	books := s.store.Search(SearchCriteria{
		Query:      args.Query,
		Author:     args.Author,
		Tag:        args.Tag,
		Genre:      args.Genre,
		SearchType: args.SearchType,
		Limit:      args.Limit,
	})

	text, err := renderJSON(books)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	return textResult(text), nil
}

func (s *Server) callGetStatistics(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if err := validateArgs(ctx, getStatisticsValidator, params.Arguments); err != nil {
		return errorResult(err.Error()), nil
	}

	var args GetStatisticsArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	text, err := renderJSON(s.store.Statistics(args.GroupBy))
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	return textResult(text), nil
}

func (s *Server) callGetRecommendations(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if err := validateArgs(ctx, getRecommendationsValidator, params.Arguments); err != nil {
		return errorResult(err.Error()), nil
	}

	var args GetRecommendationsArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	books, err := s.store.Recommendations(RecommendationCriteria{
		BasedOnISBN:     args.BasedOnISBN,
		PreferredGenres: args.PreferredGenres,
		MinRating:       args.MinRating,
		MaxResults:      args.MaxResults,
	})
	if errors.Is(err, ErrNotFound) {
		return errorResult(fmt.Sprintf("No book found with ISBN '%s'.", args.BasedOnISBN)), nil
	}
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	text, err := renderJSON(books)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	return textResult(text), nil
}

func validateArgs(ctx context.Context, schema *jsonschema.Schema, args json.RawMessage) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	keyErrs, err := schema.ValidateBytes(ctx, args)
	if err != nil {
		return fmt.Errorf("params validation failed: %w", err)
	}
	if len(keyErrs) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(keyErrs))
	for _, keyErr := range keyErrs {
		msgs = append(msgs, keyErr.Message)
	}

	return fmt.Errorf("params validation failed: %s", strings.Join(msgs, ", "))
}

func textResult(text string) mcp.CallToolResult {
	return mcp.CallToolResult{
		Content: []mcp.Content{
			{
				Type: mcp.ContentTypeText,
				Text: text,
			},
		},
		IsError: false,
	}
}

func errorResult(text string) mcp.CallToolResult {
	return mcp.CallToolResult{
		Content: []mcp.Content{
			{
				Type: mcp.ContentTypeText,
				Text: text,
			},
		},
		IsError: true,
	}
}

func appendSaveWarning(text string, err error) string {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return fmt.Sprintf("%s Warning: %s", text, perr.Error())
	}

	return text
}
