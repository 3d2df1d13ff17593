package library

import (
	"sync"

	"github.com/MegaGrindStone/go-mcp"
)

// Server exposes a book collection through the three MCP capability
// classes: tools for mutations and queries, resources for reads
// addressed by books:// URIs, and prompts for LLM-facing content.
//
// The capability catalogs are fixed at construction time. Disabling a
// feature removes its declarations from the catalogs and makes the
// matching calls unresolvable, exactly as if the capability never
// existed.
type Server struct {
	store *Store

	searchEnabled bool
	statsEnabled  bool

	tools     []mcp.Tool
	resources []mcp.Resource
	templates []mcp.ResourceTemplate
	prompts   []mcp.Prompt

	resourceSubscribers *sync.Map // map[resourceURI]struct{}

	logLevel mcp.LogLevel

	updateResourceSubs chan string
	logs               chan mcp.LogParams

	done chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSearchEnabled toggles the search_books tool and the search
// resource template.
func WithSearchEnabled(enabled bool) ServerOption {
	return func(s *Server) {
		s.searchEnabled = enabled
	}
}

// WithStatsEnabled toggles the get_statistics tool and the books://stats
// resource.
func WithStatsEnabled(enabled bool) ServerOption {
	return func(s *Server) {
		s.statsEnabled = enabled
	}
}

// NewServer wraps the store in an MCP capability server. Both feature
// flags default to enabled. Callers must call Close when finished to
// release the log and subscription streams.
func NewServer(store *Store, options ...ServerOption) *Server {
	s := &Server{
		store:               store,
		searchEnabled:       true,
		statsEnabled:        true,
		resourceSubscribers: new(sync.Map),
		logLevel:            mcp.LogLevelDebug,
		updateResourceSubs:  make(chan string, 10),
		logs:                make(chan mcp.LogParams, 10),
		done:                make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}

	s.tools = buildToolList(s.searchEnabled, s.statsEnabled)
	s.resources = buildResourceList(s.statsEnabled)
	s.templates = buildTemplateList(s.searchEnabled)
	s.prompts = buildPromptList()

	return s
}

// Close stops the log and resource-update streams.
func (s *Server) Close() {
	close(s.done)
}
