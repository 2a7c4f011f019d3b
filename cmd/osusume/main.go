// Package main is the osusume CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/cli"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/importer"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/recommend"
	"github.com/hyperjump/osusume/internal/server"
	"github.com/hyperjump/osusume/internal/storage"
	"github.com/hyperjump/osusume/internal/suggest"
	"github.com/hyperjump/osusume/internal/watcher"
	"github.com/hyperjump/osusume/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/osusume/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory takes precedence if it exists. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "recommend":
		runRecommend()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("osusume version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, cfg, logger)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Storage.Watch {
		opts := []watcher.WatcherOption{}
		if debugMode {
			opts = append(opts, watcher.WithLogger(logger))
		}
		w := watcher.NewWatcher([]string{cfg.Storage.VectorPath}, func(path string) {
			engine, err := components.Reload(watchCtx, cfg, logger)
			if err != nil {
				logger.Warn("Catalog reload failed, keeping current catalog", zap.String("path", path), zap.Error(err))
				return
			}
			srv.SetEngine(engine)
			logger.Info("Catalog reloaded", zap.String("catalog_id", engine.Catalog().ID()))
		}, opts...)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start catalog watcher", zap.Error(err))
		}
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: osusume recommend [flags] <title>\n\n")
	fmt.Fprintf(fs.Output(), "Title is all remaining arguments joined by spaces. Matching ignores case and surrounding whitespace.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  osusume recommend Naruto
  osusume recommend "Death Note" --top-n 10
  osusume recommend --enrich=false --output compact Bleach
  osusume recommend --server "" Monster             # read the catalog directly
`)
}

// buildTitle joins all positional args with spaces so multi-word titles work with or
// without shell quoting.
func buildTitle(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(a, "-config="); ok {
			return v
		}
	}
	return defaultPath
}

// synopsisLengthFromConfig loads config at path and returns the synopsis length for text
// output, falling back to cli.DefaultSynopsisLength.
func synopsisLengthFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil || cfg.Metadata.SynopsisLength <= 0 {
		return cli.DefaultSynopsisLength
	}
	return cfg.Metadata.SynopsisLength
}

// recommendFlags holds the parsed flags of the recommend subcommand.
type recommendFlags struct {
	fs         *flag.FlagSet
	configPath *string
	serverURL  *string
	topN       *int
	enrich     *bool
	output     *string
}

func newRecommendFlags(handling flag.ErrorHandling) *recommendFlags {
	fs := flag.NewFlagSet("recommend", handling)
	f := &recommendFlags{fs: fs}
	f.configPath = fs.String("config", defaultConfigPath, "config file path")
	f.serverURL = fs.String("server", "http://localhost:8080", "server URL (empty = load the catalog directly)")
	f.topN = fs.Int("top-n", 0, "number of recommendations (omit for the configured default)")
	f.enrich = fs.Bool("enrich", true, "fetch display metadata for each result")
	f.output = fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printRecommendUsage(fs) }
	return f
}

// query builds the request for title. TopN is set only when --top-n was given, so an
// explicit 0 reaches the engine and is rejected there.
func (f *recommendFlags) query(title string) *models.RecommendQuery {
	q := &models.RecommendQuery{Title: title, Enrich: f.enrich}
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "top-n" {
			q.TopN = f.topN
		}
	})
	return q
}

// recommendArgsReorder moves every flag (with its value) ahead of the title words so that
// flag.Parse sees them; the flag package stops at the first non-flag argument. Title words
// keep their relative order. Arguments after "--" are never treated as flags.
func recommendArgsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	var positionals []string
	terminated := false
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positionals = append(positionals, args[i+1:]...)
			terminated = true
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positionals = append(positionals, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		fl := fs.Lookup(name)
		if fl == nil {
			continue
		}
		if bf, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	if terminated {
		flags = append(flags, "--")
	}
	return append(flags, positionals...)
}

func runRecommend() {
	flags := newRecommendFlags(flag.ExitOnError)
	recommendArgs := recommendArgsReorder(flags.fs, os.Args[2:])
	configPath := configPathFromArgs(recommendArgs, defaultConfigPath)
	fs := flags.fs
	_ = fs.Parse(recommendArgs)

	title := buildTitle(fs.Args())
	if title == "" {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*flags.output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := flags.query(title)
	synopsisLength := synopsisLengthFromConfig(configPath)

	var response *models.RecommendResponse
	if *flags.serverURL != "" {
		response, err = recommendViaHTTP(*flags.serverURL, query)
	} else {
		response, err = recommendDirect(*flags.configPath, query)
	}
	if err != nil {
		var nf *recommend.NotFoundError
		if errors.As(err, &nf) {
			_ = cli.WriteNotFound(os.Stdout, title, nf.Suggestions, format)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, format, synopsisLength); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func recommendDirect(configPath string, query *models.RecommendQuery) (*models.RecommendResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Engine.Handle(context.Background(), query)
}

// notFoundBody is the 404 body of POST /api/v1/recommend.
type notFoundBody struct {
	Error       string               `json:"error"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// recommendViaHTTP posts query to a running server. A 404 is returned as a
// *recommend.NotFoundError carrying the server's suggestions.
func recommendViaHTTP(serverURL string, query *models.RecommendQuery) (*models.RecommendResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/recommend", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		var nf notFoundBody
		if err := json.NewDecoder(resp.Body).Decode(&nf); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, &recommend.NotFoundError{Title: query.Title, Suggestions: nf.Suggestions}
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: osusume import [flags] <catalog.csv|catalog.jsonl|catalog.xlsx>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	for _, p := range []string{cfg.Storage.DatabasePath, cfg.Storage.VectorPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			logger.Fatal("Failed to create data directory", zap.String("path", p), zap.Error(err))
		}
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	imp := importer.NewImporter(store, cfg.Storage.VectorPath, importer.WithLogger(logger))
	result, err := imp.ImportFile(context.Background(), path)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteImportResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the catalog directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var status *models.CatalogStatus
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(context.Background(), cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		status = recommend.Status(components.Catalog, cfg)
	}

	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*models.CatalogStatus, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s models.CatalogStatus
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`osusume - Content-based recommendations by title

Usage:
  osusume server [flags]             Start the HTTP server
  osusume recommend [flags] <title>  Recommend titles similar to <title>
  osusume import [flags] <file>      Replace the catalog from a CSV, JSONL or XLSX file
  osusume status [flags]             Show catalog status
  osusume version                    Show version
  osusume help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/osusume/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --config string    Config file path (for direct mode and synopsis length)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to load the catalog directly.
  --top-n int        Number of recommendations, at least 1 (default from config, or 5)
  --enrich           Fetch display metadata for each result (default: true)
  --output string    Output format: text, compact or json (default: text)

Import Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Config:
  storage.watch: true reloads the catalog in a running server after "osusume import".

Environment:
  OSUSUME_SERVER_HOST, OSUSUME_SERVER_PORT, OSUSUME_DATABASE_PATH, OSUSUME_VECTOR_PATH,
  OSUSUME_METADATA_BASE_URL and OSUSUME_DEBUG override the config file. A .env file in
  the current directory is loaded first.

Examples:
  osusume import anime.csv
  osusume server
  osusume recommend Naruto
  osusume recommend --top-n 10 --output json "Death Note"
  osusume status --output json`)
}
