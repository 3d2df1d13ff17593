package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/go-mcp"
)

var errBookNotFound = errors.New("Book not found.")

const (
	resourceMimeType    = "application/json"
	maxCompletionValues = 100
)

func buildResourceList(statsEnabled bool) []mcp.Resource {
	resources := []mcp.Resource{
		{
			URI:         "books://all",
			Name:        "all_books",
			Description: "Get all books in the library",
			MimeType:    resourceMimeType,
		},
	}

	if statsEnabled {
		resources = append(resources, mcp.Resource{
			URI:         "books://stats",
			Name:        "library_stats",
			Description: "Get statistics about the library collection",
			MimeType:    resourceMimeType,
		})
	}

	return resources
}

func buildTemplateList(searchEnabled bool) []mcp.ResourceTemplate {
	templates := []mcp.ResourceTemplate{
		{
			URITemplate: "books://index/{index}",
			Name:        "book_by_index",
			Description: "Get a book by its index in the library",
			MimeType:    resourceMimeType,
		},
		{
			URITemplate: "books://isbn/{isbn}",
			Name:        "book_by_isbn",
			Description: "Get a book by its ISBN",
			MimeType:    resourceMimeType,
		},
	}

	if searchEnabled {
		templates = append(templates, mcp.ResourceTemplate{
			URITemplate: "books://search?q={q}&author={author}&tag={tag}&limit={limit}",
			Name:        "search_books",
			Description: "Search the library with free text and filters",
			MimeType:    resourceMimeType,
		})
	}

	return templates
}

// ListResources implements mcp.ResourceServer interface.
func (s *Server) ListResources(
	_ context.Context,
	params mcp.ListResourcesParams,
	_ mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.ListResourcesResult, error) {
	s.log(fmt.Sprintf("ListResources: %s", params.Cursor), mcp.LogLevelDebug)

	return mcp.ListResourcesResult{
		Resources: s.resources,
	}, nil
}

// ReadResource implements mcp.ResourceServer interface. The URI picks the
// operation: books://all and books://stats read whole snapshots, while
// books://index/{index}, books://isbn/{isbn} and books://search resolve
// through their parameters.
func (s *Server) ReadResource(
	_ context.Context,
	params mcp.ReadResourceParams,
	_ mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.ReadResourceResult, error) {
	s.log(fmt.Sprintf("ReadResource: %s", params.URI), mcp.LogLevelDebug)

	text, err := s.readResourceText(params.URI)
	if err != nil {
		return mcp.ReadResourceResult{}, err
	}

	return mcp.ReadResourceResult{
		Contents: []mcp.ResourceContents{
			{
				URI:      params.URI,
				MimeType: resourceMimeType,
				Text:     text,
			},
		},
	}, nil
}

func (s *Server) readResourceText(uri string) (string, error) {
	switch {
	case uri == "books://all":
		return renderJSON(s.store.All())
	case uri == "books://stats" && s.statsEnabled:
		return renderJSON(s.store.Statistics(""))
	case strings.HasPrefix(uri, "books://index/"):
		return s.readBookByIndex(strings.TrimPrefix(uri, "books://index/"))
	case strings.HasPrefix(uri, "books://isbn/"):
		return s.readBookByISBN(strings.TrimPrefix(uri, "books://isbn/"))
	case strings.HasPrefix(uri, "books://search") && s.searchEnabled:
		return s.readSearchResource(uri)
	}

	return "", fmt.Errorf("Resource '%s' not found.", uri)
}

func (s *Server) readBookByIndex(raw string) (string, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return "", fmt.Errorf("Invalid index: %s", raw)
	}

	book, err := s.store.BookByIndex(index)
	if err != nil {
		return "", errBookNotFound
	}

	return renderJSON(book)
}

func (s *Server) readBookByISBN(raw string) (string, error) {
	book, err := s.store.BookByISBN(raw)
	if err != nil {
		return "", errBookNotFound
	}

	return renderJSON(book)
}

func (s *Server) readSearchResource(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("Resource '%s' not found.", uri)
	}

	query := u.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	books := s.store.Search(SearchCriteria{
		Query:  query.Get("q"),
		Author: query.Get("author"),
		Tag:    query.Get("tag"),
		Limit:  limit,
	})

	return renderJSON(books)
}

// ListResourceTemplates implements mcp.ResourceServer interface.
func (s *Server) ListResourceTemplates(
	_ context.Context,
	_ mcp.ListResourceTemplatesParams,
	_ mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.ListResourceTemplatesResult, error) {
	s.log("ListResourceTemplates", mcp.LogLevelDebug)

	return mcp.ListResourceTemplatesResult{
		Templates: s.templates,
	}, nil
}

// CompletesResourceTemplate implements mcp.ResourceServer interface.
// Completion values come from the live collection, so index and ISBN
// suggestions always refer to books that exist right now.
func (s *Server) CompletesResourceTemplate(
	_ context.Context,
	params mcp.CompletesCompletionParams,
	_ mcp.RequestClientFunc,
) (mcp.CompletionResult, error) {
	s.log(fmt.Sprintf("CompletesResourceTemplate: %s", params.Argument.Name), mcp.LogLevelDebug)

	return completionResult(s.templateArgValues(params.Argument.Name), params.Argument.Value), nil
}

func (s *Server) templateArgValues(arg string) []string {
	switch arg {
	case "index":
		count := s.store.Count()
		values := make([]string, 0, count)
		for i := 0; i < count; i++ {
			values = append(values, strconv.Itoa(i))
		}
		return values
	case "isbn":
		books := s.store.All()
		values := make([]string, 0, len(books))
		for _, b := range books {
			values = append(values, b.ISBN)
		}
		return values
	case "tag":
		return s.store.Statistics("").MostCommonTags
	}

	return nil
}

// SubscribeResource implements mcp.ResourceSubscriptionHandler interface.
func (s *Server) SubscribeResource(params mcp.SubscribeResourceParams) {
	s.log(fmt.Sprintf("SubscribeResource: %s", params.URI), mcp.LogLevelDebug)

	s.resourceSubscribers.Store(params.URI, struct{}{})
}

// UnsubscribeResource implements mcp.ResourceSubscriptionHandler interface.
func (s *Server) UnsubscribeResource(params mcp.UnsubscribeResourceParams) {
	s.log(fmt.Sprintf("UnsubscribeResource: %s", params.URI), mcp.LogLevelDebug)

	s.resourceSubscribers.Delete(params.URI)
}

// SubscribedResourceUpdates implements mcp.ResourceSubscriptionHandler interface.
func (s *Server) SubscribedResourceUpdates() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			select {
			case <-s.done:
				return
			case uri := <-s.updateResourceSubs:
				if !yield(uri) {
					return
				}
			}
		}
	}
}

// notifyBooksChanged pushes an update for every subscribed resource URI
// after a mutation. A full queue drops the update rather than stalling
// the tool call that triggered it.
func (s *Server) notifyBooksChanged() {
	s.resourceSubscribers.Range(func(key, _ any) bool {
		uri, _ := key.(string)

		select {
		case s.updateResourceSubs <- uri:
		case <-s.done:
			return false
		default:
		}

		return true
	})
}

func completionResult(candidates []string, prefix string) mcp.CompletionResult {
	var values []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			values = append(values, c)
		}
	}

	total := len(values)
	hasMore := false
	if len(values) > maxCompletionValues {
		values = values[:maxCompletionValues]
		hasMore = true
	}

	return mcp.CompletionResult{
		Completion: struct {
			Values  []string `json:"values"`
			HasMore bool     `json:"hasMore,omitempty"`
			Total   int      `json:"total,omitempty"`
		}{
			Values:  values,
			HasMore: hasMore,
			Total:   total,
		},
	}
}

// renderJSON marshals resource and tool payloads as four-space indented
// JSON.
func renderJSON(v any) (string, error) {
	bs, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}

	return string(bs), nil
}
