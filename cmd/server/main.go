package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qodeinvest/qode-engine/internal/auth"
	"github.com/qodeinvest/qode-engine/internal/cache"
	"github.com/qodeinvest/qode-engine/internal/events"
	"github.com/qodeinvest/qode-engine/internal/history"
	"github.com/qodeinvest/qode-engine/internal/httpapi"
	duckdbadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/duckdb"
	sqliteadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/sqlite"
	"github.com/qodeinvest/qode-engine/internal/nlsql"
	"github.com/qodeinvest/qode-engine/internal/pkg/logctx"
	"github.com/qodeinvest/qode-engine/internal/querylog"
	"github.com/qodeinvest/qode-engine/internal/service"
)

const (
	DefaultResourcesPath = "./resources.yaml"
	DefaultPort          = 8080
)

var (
	currentLogFile  *os.File
	currentLogPath  string
	currentLogLevel slog.Leveler
	currentApp      string
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags
	resourcesPath := flag.String("config", DefaultResourcesPath, "Path to resource catalog file")
	port := flag.Int("port", DefaultPort, "Port to listen on (TCP, optional)")
	socketPath := flag.String("socket", "", "Unix domain socket path (preferred)")
	logLevelFlag := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	standalone := flag.Bool("standalone", false, "Run without parent-process monitoring (foreground mode)")
	dataDir := flag.String("data-dir", defaultDataDir(), "Directory for history, sessions and query logs")
	usersPath := flag.String("users", "", "Path to users file; empty enables open mode")
	flag.Parse()

	_ = godotenv.Load()

	level := parseLevel(*logLevelFlag, slog.LevelInfo)
	logger := logctx.WrapLogger(newFileLogger("qode-engine", level))
	slog.SetDefault(logger)

	// Handle SIGHUP to reopen log file after external rotation
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if currentLogFile != nil {
				_ = currentLogFile.Close()
			}
			newLogger := logctx.WrapLogger(newFileLogger(currentApp, currentLogLevel))
			slog.SetDefault(newLogger)
			slog.Info("log file reopened", slog.String("path", currentLogPath))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var parentDone <-chan struct{}
	if !*standalone {
		ch := make(chan struct{})
		parentDone = ch
		go monitorParentAlive(ch, cancel)
	} else {
		slog.InfoContext(ctx, "standalone mode: parent monitor disabled")
	}

	catalogService := service.NewResourceCatalogService(*resourcesPath)

	slog.InfoContext(ctx, "loading resource catalog", slog.String("path", *resourcesPath))
	if err := catalogService.LoadResources(); err != nil {
		slog.ErrorContext(ctx, "failed to load resource catalog", slog.Any("err", err))
		return 1
	}
	slog.InfoContext(ctx, "resource catalog loaded")

	eventHub := events.NewHub()
	sessionService := service.NewResourceSessionService(catalogService, eventHub)
	sessionService.RegisterAdapter("duckdb", duckdbadapter.NewAdapter)
	sessionService.RegisterAdapter("sqlite", sqliteadapter.NewAdapter)

	queryLog := querylog.New(filepath.Join(*dataDir, "query_logs"))
	queryService := service.NewQueryService(sessionService, eventHub, queryLog, ctx)

	historyStore := history.NewStore(filepath.Join(*dataDir, "query_history"))

	authService, err := auth.NewService(*usersPath, filepath.Join(*dataDir, "sessions"), 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize auth", slog.Any("err", err))
		return 1
	}
	if authService.Open() {
		slog.InfoContext(ctx, "no users file configured, running in open mode")
	}

	translator := buildTranslator(ctx)
	tickCache := buildTickCache(ctx)
	if tickCache != nil {
		defer func() { _ = tickCache.Close() }()
	}

	handler := httpapi.NewHandler(catalogService, sessionService, queryService, historyStore, translator, tickCache, authService)

	var server *httpapi.Server
	if *socketPath != "" {
		server, err = httpapi.NewUnixServer(ctx, handler, eventHub, *socketPath)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create unix socket server", slog.Any("err", err))
			return 1
		}
		slog.InfoContext(ctx, "server started", slog.String("transport", "unix"), slog.String("socket", *socketPath))
	} else {
		server, err = httpapi.NewServer(ctx, handler, eventHub, *port)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create TCP server", slog.Any("err", err))
			return 1
		}
		slog.InfoContext(ctx, "server started", slog.String("transport", "tcp"), slog.Int("port", *port))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-parentDone:
		slog.WarnContext(ctx, "parent process died, shutting down")
	}

	slog.InfoContext(ctx, "shutting down")

	// Stop query service to cancel running jobs
	queryService.Stop()
	sessionService.CloseAll()

	if err := server.Shutdown(); err != nil {
		slog.ErrorContext(ctx, "server forced to shutdown", slog.Any("err", err))
		return 1
	}

	if err := server.Wait(); err != nil {
		slog.WarnContext(ctx, "server wait error", slog.Any("err", err))
	}

	slog.InfoContext(ctx, "server stopped")
	return 0
}

// buildTranslator constructs the natural-language translator when an API key
// is configured, otherwise the endpoint stays disabled.
func buildTranslator(ctx context.Context) httpapi.Translator {
	apiKey := os.Getenv("NLSQL_API_KEY")
	if apiKey == "" {
		slog.InfoContext(ctx, "NLSQL_API_KEY not set, translation disabled")
		return nil
	}
	translator, err := nlsql.New(nlsql.Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("NLSQL_BASE_URL"),
		Model:   os.Getenv("NLSQL_MODEL"),
		Timeout: 60 * time.Second,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to build translator", slog.Any("err", err))
		return nil
	}
	return translator
}

// buildTickCache connects the hot bar cache when REDIS_ADDR is configured.
func buildTickCache(ctx context.Context) cache.BarCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		slog.InfoContext(ctx, "REDIS_ADDR not set, tick cache disabled")
		return nil
	}
	db := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			db = parsed
		}
	}
	tickCache, err := cache.NewRedisBarCache(addr, os.Getenv("REDIS_PASSWORD"), db, os.Getenv("REDIS_PREFIX"))
	if err != nil {
		slog.WarnContext(ctx, "failed to build tick cache", slog.Any("err", err))
		return nil
	}
	return tickCache
}

// monitorParentAlive monitors if the parent process is still alive
// by reading from file descriptor 3 (a pipe passed by the parent).
// When the parent dies, the pipe closes and this function signals shutdown.
func monitorParentAlive(done chan<- struct{}, cancel context.CancelFunc) {
	// File descriptor 3 is the read end of a pipe from parent
	// (fd 0=stdin, 1=stdout, 2=stderr, 3=parent pipe)
	pipe := os.NewFile(3, "parent-pipe")
	if pipe == nil {
		// No pipe provided, running standalone (not from a launcher)
		return
	}
	defer func() { _ = pipe.Close() }()

	// Block reading from pipe. When parent dies, pipe closes and read returns EOF
	buf := make([]byte, 1)
	_, err := pipe.Read(buf)
	if err != nil {
		// Parent died (pipe closed), request graceful shutdown
		cancel()
		close(done)
	}
}

func newFileLogger(app string, level slog.Leveler) *slog.Logger {
	logDir := defaultLogDir()
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		// If we cannot create the directory, fallback to stderr so we don't lose logs
		h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(h).With(slog.String("app", app))
	}
	filePath := filepath.Join(logDir, fmt.Sprintf("%s.log", app))
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Fallback to stderr if file cannot be opened
		h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(h).With(slog.String("app", app))
	}
	currentLogFile = f
	currentLogPath = filePath
	currentLogLevel = level
	currentApp = app

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(slog.String("app", app))
}

func parseLevel(s string, def slog.Level) slog.Leveler {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return def
	}
}

func defaultDataDir() string {
	if x := os.Getenv("XDG_DATA_HOME"); x != "" {
		return filepath.Join(x, "qode")
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		return filepath.Join(home, ".local", "share", "qode")
	}
	return filepath.Join(os.TempDir(), "qode")
}

func defaultLogDir() string {
	if x := os.Getenv("XDG_STATE_HOME"); x != "" {
		return filepath.Join(x, "qode")
	}
	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		if home != "" {
			return filepath.Join(home, "Library", "Logs", "qode")
		}
	}
	if home != "" {
		return filepath.Join(home, ".local", "state", "qode")
	}
	return filepath.Join(os.TempDir(), "qode")
}
