package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/receipt-ocr/internal/receipt"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const shutdownTimeout = 30 * time.Second

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-ocr")
	var (
		port          = fs.IntLong("port", 8000, "HTTP server port")
		lang          = fs.StringLong("lang", scanning.LanguageAuto, "Receipt language: 'auto', 'es' or 'en'")
		useAngle      = fs.BoolDefault(0, "use-angle", true, "Detect text orientation so rotated lines are read upright")
		preprocess    = fs.BoolDefault(0, "preprocess", true, "Also recognize a resized, binarized copy of each image")
		minConfidence = fs.Float64Long("min-confidence", scanning.DefaultMinConfidence, "Minimum score for a detected line to be kept")
		maxSide       = fs.IntLong("max-side", scanning.DefaultMaxSide, "Downscale images whose longest side exceeds this many pixels")
		minSide       = fs.IntLong("min-side", scanning.DefaultMinSide, "Upscale images whose shortest side is below this many pixels")
		engineType    = fs.StringLong("engine", "tesseract", "Recognition engine: 'tesseract', 'gemini' or 'ollama'")
		tessdata      = fs.StringLong("tessdata", "", "Tesseract traineddata directory (system default when empty)")
		tessPool      = fs.IntLong("tesseract-pool", 2, "Tesseract clients per language")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name (e.g., qwen2.5vl, llava:1.6, minicpm-v)")
		maxUploadMB   = fs.IntLong("max-upload-mb", 50, "Maximum upload size in megabytes")
		debugDir      = fs.StringLong("debug-dir", "", "Directory for preprocessed images (disabled when empty)")
		cacheTTL      = fs.DurationLong("cache-ttl", 0, "Reuse results for repeated uploads for this long (disabled when 0)")
		cacheSize     = fs.IntLong("cache-size", 256, "Maximum number of cached results")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *lang != scanning.LanguageAuto && *lang != "es" && *lang != "en" {
		slog.Error("Invalid language", "lang", *lang, "valid", "auto, es or en")
		os.Exit(1)
	}

	// Initialize the engine loader based on type
	var loader scanning.Loader
	switch *engineType {
	case "tesseract":
		slog.Info("Initializing Tesseract engine...", "tessdata", *tessdata, "pool", *tessPool, "use_angle", *useAngle)
		loader = scanning.NewTesseractLoader(scanning.TesseractOptions{
			Tessdata: *tessdata,
			UseAngle: *useAngle,
			PoolSize: *tessPool,
		})
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini engine...", "model", *geminiModel)
		gemini, err := scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		loader = gemini.Engine
	case "ollama":
		slog.Info("Initializing Ollama engine...", "url", *ollamaURL, "model", *ollamaModel)
		ollama, err := scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		defer ollama.Close()
		loader = ollama.Engine
	default:
		slog.Error("Invalid engine type", "type", *engineType, "valid", "tesseract, gemini or ollama")
		os.Exit(1)
	}

	registry := scanning.NewRegistry(loader)
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Error("Failed to close engines", "error", err)
		}
	}()

	selector := scanning.NewSelector(registry, scanning.NewPreprocessor(*maxSide, *minSide), scanning.SelectorConfig{
		Language:      *lang,
		Preprocess:    *preprocess,
		MinConfidence: *minConfidence,
	})

	// Debug storage is optional
	var store receipt.Storage
	if *debugDir != "" {
		slog.Info("Initializing debug storage...", "dir", *debugDir)
		local, err := receipt.NewLocalStorage(*debugDir)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
		store = local
	}

	receiptService := receipt.NewService(selector, store)
	if *cacheTTL > 0 {
		slog.Info("Result cache enabled", "ttl", *cacheTTL, "size", *cacheSize)
		cache := receipt.NewResultCache(*cacheTTL, uint64(max(*cacheSize, 0)))
		go cache.Start()
		defer cache.Stop()
		receiptService.UseCache(cache)
	}

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth, int64(*maxUploadMB)<<20)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errChan:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
		return
	case <-sigChan:
	}

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}
}
