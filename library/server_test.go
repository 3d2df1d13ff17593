package library

import (
	"context"
	"strings"
	"testing"

	"github.com/MegaGrindStone/go-mcp"
)

func TestLogStreamDeliversEntries(t *testing.T) {
	srv := newTestServer(t)

	if _, err := srv.ListTools(context.Background(), mcp.ListToolsParams{}, nil, nil); err != nil {
		t.Fatalf("failed to list tools: %v", err)
	}

	var got mcp.LogParams
	for params := range srv.LogStreams() {
		got = params
		break
	}

	if got.Logger != "library" {
		t.Errorf("expected logger %q, got %q", "library", got.Logger)
	}
	if got.Level != mcp.LogLevelDebug {
		t.Errorf("expected debug level, got %d", got.Level)
	}
	if !strings.Contains(string(got.Data), "ListTools") {
		t.Errorf("expected entry naming the operation, got %s", got.Data)
	}
}

func TestSetLogLevelFilters(t *testing.T) {
	srv := newTestServer(t)
	srv.SetLogLevel(mcp.LogLevelError)

	if _, err := srv.ListTools(context.Background(), mcp.ListToolsParams{}, nil, nil); err != nil {
		t.Fatalf("failed to list tools: %v", err)
	}

	select {
	case params := <-srv.logs:
		t.Errorf("expected debug entry to be filtered out, got %s", params.Data)
	default:
	}
}

func TestLogStreamStopsOnClose(t *testing.T) {
	srv := NewServer(newTestStore(t))
	srv.Close()

	for range srv.LogStreams() {
		t.Fatal("expected no entries after close")
	}
}
