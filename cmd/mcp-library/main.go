package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MegaGrindStone/go-mcp"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/MegaGrindStone/mcp-library/internal/config"
	"github.com/MegaGrindStone/mcp-library/library"
)

const (
	serverName    = "mcp-library"
	serverVersion = "0.2.0"

	instructions = "This server manages a library of books. Use the tools to add, update, " +
		"remove and query books, read the collection through the books:// resources, and use " +
		"the prompts to generate book-related requests for a language model."
)

func main() {
	var (
		configPath string
		transport  string
		port       int
		booksFile  string
		logLevel   string
	)

	pflag.StringVar(&configPath, "config", "", "path to a YAML config file")
	pflag.StringVar(&transport, "transport", "stdio", "transport to serve on (stdio or sse)")
	pflag.IntVar(&port, "port", 0, "listen port for the sse transport (overrides config)")
	pflag.StringVar(&booksFile, "books-file", "", "path of the book collection file (overrides config)")
	pflag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags win over both the file and the environment.
	if port != 0 {
		cfg.Port = port
	}
	if booksFile != "" {
		cfg.BooksFile = booksFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)

	if err := run(transport, cfg, logger); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// setupLogger builds the process logger. Logs always go to stderr; on
// the stdio transport stdout carries the protocol stream.
func setupLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func run(transport string, cfg config.Config, logger *slog.Logger) error {
	storeOptions := []library.StoreOption{
		library.WithMaxBooks(cfg.MaxBooks),
		library.WithStoreLogger(logger),
	}
	if cfg.CacheEnabled {
		storeOptions = append(storeOptions, library.WithCache(cfg.CacheTTL))
	}

	store, err := library.NewStore(library.NewFileStorage(cfg.BooksFile), storeOptions...)
	if err != nil {
		return fmt.Errorf("failed to open book collection: %w", err)
	}

	srv := library.NewServer(store,
		library.WithSearchEnabled(cfg.EnableSearch),
		library.WithStatsEnabled(cfg.EnableStats),
	)
	defer srv.Close()

	logger.Info("book collection loaded",
		slog.String("file", cfg.BooksFile),
		slog.Int("books", store.Count()),
	)

	switch transport {
	case "stdio":
		return serveStdIO(srv, logger)
	case "sse":
		return serveSSE(srv, cfg, logger)
	}

	return fmt.Errorf("unknown transport: %s", transport)
}

func newMCPServer(srv *library.Server, transport mcp.ServerTransport, logger *slog.Logger) mcp.Server {
	return mcp.NewServer(mcp.Info{
		Name:    serverName,
		Version: serverVersion,
	}, transport,
		mcp.WithToolServer(srv),
		mcp.WithResourceServer(srv),
		mcp.WithResourceSubscriptionHandler(srv),
		mcp.WithPromptServer(srv),
		mcp.WithLogHandler(srv),
		mcp.WithInstructions(instructions),
		mcp.WithServerPingInterval(30*time.Second),
		mcp.WithServerLogger(logger),
	)
}

func serveStdIO(srv *library.Server, logger *slog.Logger) error {
	stdIO := mcp.NewStdIO(os.Stdin, os.Stdout)
	mcpSrv := newMCPServer(srv, stdIO, logger)

	go mcpSrv.Serve()

	logger.Info("serving on stdio")

	waitForSignal(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return mcpSrv.Shutdown(ctx)
}

func serveSSE(srv *library.Server, cfg config.Config, logger *slog.Logger) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	sse := mcp.NewSSEServer(fmt.Sprintf("http://%s/message", addr))
	mcpSrv := newMCPServer(srv, sse, logger)

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.HandleSSE())
	mux.Handle("/message", rateLimit(sse.HandleMessage(), logger))

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("serving on sse", slog.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	go mcpSrv.Serve()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mcpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown mcp server: %w", err)
	}

	return httpSrv.Shutdown(ctx)
}

// rateLimit applies a per-client-IP token bucket to the message
// endpoint, 5 requests per second with a burst of 10. Stale entries are
// evicted so the map does not grow forever.
func rateLimit(next http.Handler, logger *slog.Logger) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, c := range clients {
				if time.Since(c.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		mu.Lock()
		c, found := clients[ip]
		if !found {
			c = &client{limiter: rate.NewLimiter(rate.Limit(5), 10)}
			clients[ip] = c
		}
		c.lastSeen = time.Now()
		allowed := c.limiter.Allow()
		mu.Unlock()

		if !allowed {
			logger.Warn("rate limit exceeded", slog.String("ip", ip))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func waitForSignal(logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
}
