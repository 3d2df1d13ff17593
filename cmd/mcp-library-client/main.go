package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MegaGrindStone/go-mcp"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const (
	clientName    = "mcp-library-client"
	clientVersion = "0.2.0"
)

// client walks the whole protocol surface of a running mcp-library
// server: every tool, resource, resource template and prompt, plus the
// completion, subscription and log-stream side channels.
type client struct {
	cli *mcp.Client

	dim    *color.Color
	yellow *color.Color
	green  *color.Color

	isbn string
	book map[string]any
}

func main() {
	var (
		transport string
		serverURL string
		command   string
	)

	pflag.StringVar(&transport, "transport", "stdio", "transport to connect over (stdio or sse)")
	pflag.StringVar(&serverURL, "server-url", "http://127.0.0.1:8000", "base URL of a running sse server")
	pflag.StringVar(&command, "command", "mcp-library", "server program to spawn for the stdio transport")
	pflag.Parse()

	if err := run(transport, serverURL, command); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(transportName, serverURL, command string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		transport mcp.ClientTransport
		srvCmd    *exec.Cmd
	)

	switch transportName {
	case "stdio":
		srvCmd = exec.Command(command)
		srvCmd.Stderr = os.Stderr

		stdin, err := srvCmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("failed to open server stdin: %w", err)
		}
		stdout, err := srvCmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("failed to open server stdout: %w", err)
		}
		if err := srvCmd.Start(); err != nil {
			return fmt.Errorf("failed to start server %q: %w", command, err)
		}

		transport = mcp.NewStdIO(stdout, stdin)
	case "sse":
		transport = mcp.NewSSEClient(strings.TrimRight(serverURL, "/")+"/sse", nil)
	default:
		return fmt.Errorf("unknown transport: %s", transportName)
	}

	c := &client{
		dim:    color.New(color.Faint),
		yellow: color.New(color.FgYellow),
		green:  color.New(color.FgGreen),
	}
	c.cli = mcp.NewClient(mcp.Info{
		Name:    clientName,
		Version: clientVersion,
	}, transport,
		mcp.WithLogReceiver(c),
		mcp.WithProgressListener(c),
		mcp.WithResourceSubscribedWatcher(c),
	)

	ready := make(chan struct{})
	sessErr := make(chan error, 1)
	go func() {
		sessErr <- c.cli.Connect(ctx, ready)
	}()

	select {
	case <-ready:
	case err := <-sessErr:
		stopServer(srvCmd)
		return fmt.Errorf("failed to connect: %w", err)
	}

	info := c.cli.ServerInfo()
	c.green.Printf("Connected to %s %s\n", info.Name, info.Version)

	walkErr := c.walk(ctx)

	cancel()
	<-sessErr
	stopServer(srvCmd)

	return walkErr
}

func stopServer(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	_ = cmd.Wait()
}

func (c *client) walk(ctx context.Context) error {
	if err := c.cli.SetLogLevel(mcp.LogLevelDebug); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}

	steps := []func(context.Context) error{
		c.showCapabilities,
		c.showCollection,
		c.addBook,
		c.lookupBook,
		c.updateBook,
		c.searchBooks,
		c.showStatistics,
		c.showRecommendations,
		c.showPrompts,
		c.removeBook,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}

	fmt.Println()
	c.green.Println("Walkthrough complete.")

	return nil
}

func (c *client) showCapabilities(ctx context.Context) error {
	section("Capabilities")

	tools, err := c.cli.ListTools(ctx, mcp.ListToolsParams{})
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	fmt.Printf("  Tools (%d):\n", len(tools.Tools))
	for _, tool := range tools.Tools {
		fmt.Printf("    %-20s %s\n", tool.Name, tool.Description)
	}

	resources, err := c.cli.ListResources(ctx, mcp.ListResourcesParams{})
	if err != nil {
		return fmt.Errorf("failed to list resources: %w", err)
	}
	fmt.Printf("  Resources (%d):\n", len(resources.Resources))
	for _, res := range resources.Resources {
		fmt.Printf("    %-20s %s\n", res.URI, res.Description)
	}

	templates, err := c.cli.ListResourceTemplates(ctx, mcp.ListResourceTemplatesParams{})
	if err != nil {
		return fmt.Errorf("failed to list resource templates: %w", err)
	}
	fmt.Printf("  Resource templates (%d):\n", len(templates.Templates))
	for _, tmpl := range templates.Templates {
		fmt.Printf("    %-30s %s\n", tmpl.URITemplate, tmpl.Description)
	}

	prompts, err := c.cli.ListPrompts(ctx, mcp.ListPromptsParams{})
	if err != nil {
		return fmt.Errorf("failed to list prompts: %w", err)
	}
	fmt.Printf("  Prompts (%d):\n", len(prompts.Prompts))
	for _, prompt := range prompts.Prompts {
		args := make([]string, 0, len(prompt.Arguments))
		for _, arg := range prompt.Arguments {
			args = append(args, arg.Name)
		}
		fmt.Printf("    %-30s args: %s\n", prompt.Name, strings.Join(args, ", "))
	}

	return nil
}

func (c *client) showCollection(ctx context.Context) error {
	section("Collection")

	count, err := c.countBooks(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  The library holds %d books.\n", count)

	all, err := c.readResource(ctx, "books://all")
	if err != nil {
		return err
	}
	fmt.Println(all)

	if err := c.cli.SubscribeResource(ctx, mcp.SubscribeResourceParams{URI: "books://all"}); err != nil {
		return fmt.Errorf("failed to subscribe to books://all: %w", err)
	}
	c.yellow.Println("  Subscribed to books://all, mutations below will notify.")

	return nil
}

func (c *client) addBook(ctx context.Context) error {
	section("Add")

	c.isbn = generateISBN13()
	c.book = map[string]any{
		"title":          "The Walkthrough Chronicles",
		"author":         "Ada Demo",
		"isbn":           c.isbn,
		"genre":          "Science Fiction",
		"year_published": 2024,
		"pages":          312,
		"rating":         4.2,
		"tags":           []string{"demo", "space opera"},
		"description":    "A tour of every corner of a small library server.",
	}

	text, err := c.callTool(ctx, "add_book", c.book)
	if err != nil {
		return err
	}
	c.green.Printf("  %s\n", text)

	count, err := c.countBooks(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  The library now holds %d books.\n", count)

	return nil
}

func (c *client) lookupBook(ctx context.Context) error {
	section("Lookup")

	count, err := c.countBooks(ctx)
	if err != nil {
		return err
	}

	indexURI := fmt.Sprintf("books://index/%d", count-1)
	byIndex, err := c.readResource(ctx, indexURI)
	if err != nil {
		return err
	}
	fmt.Printf("  %s:\n%s\n", indexURI, byIndex)

	isbnURI := fmt.Sprintf("books://isbn/%s", c.isbn)
	byISBN, err := c.readResource(ctx, isbnURI)
	if err != nil {
		return err
	}
	fmt.Printf("  %s:\n%s\n", isbnURI, byISBN)

	completion, err := c.cli.CompletesResourceTemplate(ctx, mcp.CompletesCompletionParams{
		Ref: mcp.CompletionRef{
			Type: "ref/resource",
			URI:  "books://isbn/{isbn}",
		},
		Argument: mcp.CompletionArgument{
			Name:  "isbn",
			Value: c.isbn[:4],
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete isbn: %w", err)
	}
	fmt.Printf("  ISBN completions for %q: %s\n", c.isbn[:4], strings.Join(completion.Completion.Values, ", "))

	return nil
}

func (c *client) updateBook(ctx context.Context) error {
	section("Update")

	text, err := c.callTool(ctx, "update_book", map[string]any{
		"isbn":   c.isbn,
		"rating": 4.8,
	})
	if err != nil {
		return err
	}
	c.green.Printf("  %s\n", text)

	return nil
}

func (c *client) searchBooks(ctx context.Context) error {
	section("Search")

	text, err := c.callTool(ctx, "search_books", map[string]any{
		"query":       "walkthrough",
		"search_type": "title",
		"limit":       5,
	})
	if err != nil {
		return err
	}
	fmt.Println(text)

	return nil
}

func (c *client) showStatistics(ctx context.Context) error {
	section("Statistics")

	text, err := c.callTool(ctx, "get_statistics", map[string]any{
		"group_by": "genre",
	})
	if err != nil {
		return err
	}
	fmt.Println(text)

	return nil
}

func (c *client) showRecommendations(ctx context.Context) error {
	section("Recommendations")

	text, err := c.callTool(ctx, "get_recommendations", map[string]any{
		"preferred_genres": []string{"Science Fiction"},
		"min_rating":       4,
		"max_results":      3,
	})
	if err != nil {
		return err
	}
	fmt.Println(text)

	return nil
}

func (c *client) showPrompts(ctx context.Context) error {
	section("Prompts")

	bookJSON, err := json.Marshal(c.book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}

	prompts := []struct {
		name string
		args map[string]string
	}{
		{name: "suggest_random_book"},
		{
			name: "suggest_book_title_by_abstract",
			args: map[string]string{
				"abstract": "A lone archivist discovers the catalog is rewriting itself overnight.",
			},
		},
		{
			name: "analyze_book",
			args: map[string]string{
				"book":  string(bookJSON),
				"query": "What themes does this book explore?",
			},
		},
		{
			name: "recommend_books",
			args: map[string]string{
				"preferences": "space opera with political intrigue",
				"count":       "3",
			},
		},
	}
	for _, p := range prompts {
		if err := c.showPrompt(ctx, p.name, p.args); err != nil {
			return err
		}
	}

	completion, err := c.cli.CompletesPrompt(ctx, mcp.CompletesCompletionParams{
		Ref: mcp.CompletionRef{
			Type: "ref/prompt",
			Name: "recommend_books",
		},
		Argument: mcp.CompletionArgument{
			Name: "count",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete count: %w", err)
	}
	fmt.Printf("  Suggested counts for recommend_books: %s\n", strings.Join(completion.Completion.Values, ", "))

	return nil
}

func (c *client) removeBook(ctx context.Context) error {
	section("Remove")

	text, err := c.callTool(ctx, "remove_book", map[string]any{"isbn": c.isbn})
	if err != nil {
		return err
	}
	c.green.Printf("  %s\n", text)

	if err := c.cli.UnsubscribeResource(ctx, mcp.UnsubscribeResourceParams{URI: "books://all"}); err != nil {
		return fmt.Errorf("failed to unsubscribe from books://all: %w", err)
	}

	count, err := c.countBooks(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  The library holds %d books again.\n", count)

	return nil
}

func (c *client) countBooks(ctx context.Context) (int, error) {
	text, err := c.callTool(ctx, "get_num_books", struct{}{})
	if err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("unexpected get_num_books result %q: %w", text, err)
	}

	return count, nil
}

func (c *client) callTool(ctx context.Context, name string, args any) (string, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s arguments: %w", name, err)
	}

	result, err := c.cli.CallTool(ctx, mcp.CallToolParams{
		Name:      name,
		Arguments: rawArgs,
		Meta: mcp.ParamsMeta{
			ProgressToken: mcp.MustString(uuid.NewString()),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", name, err)
	}

	text := ""
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}
	if result.IsError {
		return "", fmt.Errorf("%s failed: %s", name, text)
	}

	return text, nil
}

func (c *client) readResource(ctx context.Context, uri string) (string, error) {
	result, err := c.cli.ReadResource(ctx, mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", uri, err)
	}
	if len(result.Contents) == 0 {
		return "", fmt.Errorf("resource %s returned no contents", uri)
	}

	return result.Contents[0].Text, nil
}

func (c *client) showPrompt(ctx context.Context, name string, args map[string]string) error {
	result, err := c.cli.GetPrompt(ctx, mcp.GetPromptParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return fmt.Errorf("failed to get prompt %s: %w", name, err)
	}

	fmt.Printf("  %s:\n", name)
	for _, msg := range result.Messages {
		fmt.Printf("    [%s] %s\n", msg.Role, msg.Content.Text)
	}

	return nil
}

// OnLog implements mcp.LogReceiver interface.
func (c *client) OnLog(params mcp.LogParams) {
	var data struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(params.Data, &data); err != nil {
		return
	}

	c.dim.Printf("  server log [%s]: %s\n", params.Logger, data.Message)
}

// OnProgress implements mcp.ProgressListener interface.
func (c *client) OnProgress(params mcp.ProgressParams) {
	c.dim.Printf("  progress %s: %.0f/%.0f\n", params.ProgressToken, params.Progress, params.Total)
}

// OnResourceSubscribedChanged implements mcp.ResourceSubscribedWatcher interface.
func (c *client) OnResourceSubscribedChanged(uri string) {
	c.yellow.Printf("  Resource changed: %s\n", uri)
}

func section(title string) {
	cyan := color.New(color.FgCyan)

	fmt.Println()
	cyan.Printf("  %s\n", title)
	cyan.Printf("  %s\n", strings.Repeat("-", len(title)))
}

// generateISBN13 builds a fresh valid ISBN-13 from the clock so repeat
// runs never collide with a book the previous run left behind.
func generateISBN13() string {
	digits := fmt.Sprintf("978%09d", time.Now().UnixNano()%1_000_000_000)

	sum := 0
	for i, r := range digits {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10

	return digits + strconv.Itoa(check)
}
