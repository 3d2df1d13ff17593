package library

import (
	"encoding/json"
	"iter"

	"github.com/MegaGrindStone/go-mcp"
)

// LogStreams implements mcp.LogHandler interface.
func (s *Server) LogStreams() iter.Seq[mcp.LogParams] {
	return func(yield func(mcp.LogParams) bool) {
		for {
			select {
			case <-s.done:
				return
			case params := <-s.logs:
				if !yield(params) {
					return
				}
			}
		}
	}
}

// SetLogLevel implements mcp.LogHandler interface.
func (s *Server) SetLogLevel(level mcp.LogLevel) {
	s.logLevel = level
}

// log emits one entry to the client-facing log stream. A full stream
// drops the entry rather than blocking the operation that logged it.
func (s *Server) log(msg string, level mcp.LogLevel) {
	if level < s.logLevel {
		return
	}

	type logData struct {
		Message string `json:"message"`
	}
	dataBs, _ := json.Marshal(logData{Message: msg})

	select {
	case s.logs <- mcp.LogParams{
		Level:  level,
		Logger: "library",
		Data:   dataBs,
	}:
	default:
	}
}
