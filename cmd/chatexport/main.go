package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pevans/chatexport"
	"github.com/pevans/chatexport/browser"
	"github.com/pevans/chatexport/config"
	"github.com/pevans/chatexport/elastic"
	"github.com/pevans/chatexport/platform"
	"github.com/pevans/chatexport/queue"
	"github.com/pevans/chatexport/store"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	configPath := getEnv("CHATEXPORT_CONFIG", "chatexport.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "scan":
		handleScan(cfg, log, args)
	case "select":
		handleSelect(cfg, args)
	case "run":
		handleRun(cfg, log, args)
	case "export":
		handleExport(cfg, log, args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

// openStore opens the artifact database from config.
func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open artifact store: %v\n", err)
		os.Exit(1)
	}
	return st
}

// openRegistry builds the platform registry, including any custom
// platforms configured on disk.
func openRegistry(cfg *config.Config) *platform.Registry {
	registry := platform.NewRegistry()
	if cfg.PlatformsFile != "" {
		if err := registry.LoadFile(cfg.PlatformsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load platforms file: %v\n", err)
			os.Exit(1)
		}
	}
	return registry
}

// openChannel launches the browser, navigates to the messaging surface,
// and wraps it in a channel.
func openChannel(cfg *config.Config, log zerolog.Logger, url string) (*queue.LocalChannel, func()) {
	if url == "" {
		fmt.Fprintln(os.Stderr, "Error: no URL given (flag -url or browser.url in config)")
		os.Exit(1)
	}

	session, err := browser.NewSession(cfg.Browser.Headless, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start browser: %v\n", err)
		os.Exit(1)
	}
	if err := session.Navigate(url); err != nil {
		session.Close()
		fmt.Fprintf(os.Stderr, "Error: failed to open %s: %v\n", url, err)
		os.Exit(1)
	}
	return queue.NewLocalChannel(session, openRegistry(cfg)), session.Close
}

func handleScan(cfg *config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	url := fs.String("url", cfg.Browser.URL, "messaging surface URL")
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()

	channel, closeBrowser := openChannel(cfg, log, *url)
	defer closeBrowser()

	result, err := channel.ScanInbox(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
		os.Exit(1)
	}
	if err := st.ReplaceChats(result.Chats); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save scan: %v\n", err)
		os.Exit(1)
	}

	printChats(result.Platform, result.Chats)
}

func handleSelect(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	exclude := fs.String("exclude", "", "comma-separated chat keys to exclude")
	all := fs.Bool("all", false, "select every scanned conversation")
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()

	selected := fs.Args()
	if *all {
		chats, err := st.LoadChats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load scan: %v\n", err)
			os.Exit(1)
		}
		selected = selected[:0]
		for _, c := range chats {
			selected = append(selected, c.ChatKey)
		}
	}
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no chat keys given (pass keys or -all)")
		os.Exit(1)
	}

	var excluded []string
	if *exclude != "" {
		excluded = strings.Split(*exclude, ",")
	}
	if err := st.SaveSelection(selected, excluded); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save selection: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Selected %d conversation(s), excluded %d.\n", len(selected), len(excluded))
}

func handleRun(cfg *config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	url := fs.String("url", cfg.Browser.URL, "messaging surface URL")
	fresh := fs.Bool("fresh", false, "discard previously accumulated messages first")
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()

	selected, excluded, err := st.LoadSelection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load selection: %v\n", err)
		os.Exit(1)
	}
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "Error: nothing selected; run 'chatexport select' first")
		os.Exit(1)
	}
	if *fresh {
		if err := st.ClearMessages(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to clear messages: %v\n", err)
			os.Exit(1)
		}
	}

	channel, closeBrowser := openChannel(cfg, log, *url)
	defer closeBrowser()

	orch := queue.New(channel, st, printProgress, log)
	result, err := orch.Start(context.Background(), selected, excluded, cfg.Settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: run failed: %v\n", err)
		os.Exit(1)
	}
	printRunSummary(result)
}

func handleExport(cfg *config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "csv", "export format: csv or tsv")
	out := fs.String("out", "", "output path (default: dated filename in the working directory)")
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()

	messages, err := st.LoadMessages()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load messages: %v\n", err)
		os.Exit(1)
	}

	var anon *chatexport.Anonymizer
	if cfg.Settings.Anonymize {
		key, err := st.LoadAnonKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load anonymization key: %v\n", err)
			os.Exit(1)
		}
		if anon, err = chatexport.NewAnonymizer(key); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	rows := chatexport.Transform(messages, cfg.Settings, anon)

	var content string
	switch *format {
	case "csv":
		content, err = chatexport.BuildCSV(rows)
	case "tsv":
		content, err = chatexport.BuildTSV(rows)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format: %s\n", *format)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: export failed: %v\n", err)
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = chatexport.ExportFilename(time.Now(), cfg.Settings.Anonymize, *format)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write export: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d row(s) to %s\n", len(rows), path)

	if cfg.Elastic.URL != "" {
		indexToElastic(cfg, log, rows)
	}
}

// indexToElastic pushes the exported rows into the configured sink. Sink
// failures don't invalidate the file already written.
func indexToElastic(cfg *config.Config, log zerolog.Logger, rows []chatexport.ExtractedMessage) {
	client, err := elastic.New(cfg.Elastic.URL, cfg.Elastic.Username, cfg.Elastic.Password,
		cfg.Elastic.Index, cfg.Elastic.SkipVerify, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: elasticsearch sink unavailable: %v\n", err)
		return
	}
	if err := client.TestConnection(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: elasticsearch unreachable: %v\n", err)
		return
	}
	indexed, _ := client.IndexMessages(context.Background(), rows)
	fmt.Printf("Indexed %d row(s) to %s\n", indexed, cfg.Elastic.Index)
}

func printUsage() {
	fmt.Println("chatexport - Export your own messages from messaging sites")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chatexport <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan       Scan the inbox and store the conversation list")
	fmt.Println("  select     Choose which conversations to extract")
	fmt.Println("  run        Extract messages from the selected conversations")
	fmt.Println("  export     Encode accumulated messages to CSV/TSV")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  CHATEXPORT_CONFIG  Path to config file (default: chatexport.yaml)")
}
