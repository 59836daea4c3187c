package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatgate/internal/catalog"
	"chatgate/internal/config"
	"chatgate/internal/engine"
	"chatgate/internal/httpapi"
	"chatgate/internal/session"
)

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true")
	}
	return def
}

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty entries.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatgate",
		Short:         "HTTP gateway that serializes chat generation against a local LLM engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (same as running with no subcommand)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(root)
		},
	}
	root.AddCommand(serve)
	f := root.PersistentFlags()
	f.String("config", envStr("CHATGATE_CONFIG", ""), "Path to a config file (yaml|json|toml)")
	f.String("addr", envStr("CHATGATE_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	f.String("backend", envStr("CHATGATE_BACKEND", "openai"), "Inference backend: openai|llama")
	f.String("catalog", envStr("CHATGATE_CATALOG", ""), "Path to a model catalog file (yaml|json|toml)")
	f.String("models-dir", envStr("CHATGATE_MODELS_DIR", ""), "Directory to scan for *.gguf model files")
	f.String("default-model", envStr("CHATGATE_DEFAULT_MODEL", ""), "Model id to remember at startup")
	f.Bool("silent", envBool("CHATGATE_SILENT", false), "Suppress user-facing event notifications")
	f.Int("max-attempts", envInt("CHATGATE_MAX_ATTEMPTS", 0), "Total generation attempts per call (0 = default)")
	f.String("openai-base-url", envStr("CHATGATE_OPENAI_BASE_URL", "http://127.0.0.1:8081/v1"), "Base URL of the OpenAI-compatible server")
	f.String("openai-api-key", envStr("CHATGATE_OPENAI_API_KEY", ""), "API key for the OpenAI-compatible server")
	f.Int("openai-timeout-sec", envInt("CHATGATE_OPENAI_TIMEOUT_SEC", 0), "Per-request timeout in seconds (0 disables)")
	f.Int("llama-ctx-size", envInt("CHATGATE_LLAMA_CTX_SIZE", 0), "llama.cpp context window size")
	f.Int("llama-threads", envInt("CHATGATE_LLAMA_THREADS", 0), "llama.cpp thread count")
	f.String("log-level", envStr("CHATGATE_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	f.String("cors-origins", envStr("CHATGATE_CORS_ORIGINS", ""), "Comma-separated allowed CORS origins (empty disables CORS)")
	f.Int64("max-body-bytes", 0, "Maximum JSON request body size (0 = 1MiB)")
	return root
}

// resolveConfig loads the optional config file and lets explicitly set flags
// override it.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()
	var cfg config.Config
	if path, _ := f.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cfg.Addr == "" || f.Changed("addr") {
		cfg.Addr, _ = f.GetString("addr")
	}
	if cfg.Backend == "" || f.Changed("backend") {
		cfg.Backend, _ = f.GetString("backend")
	}
	if v, _ := f.GetString("catalog"); v != "" {
		cfg.CatalogPath = v
	}
	if v, _ := f.GetString("models-dir"); v != "" {
		cfg.ModelsDir = v
	}
	if v, _ := f.GetString("default-model"); v != "" {
		cfg.DefaultModel = v
	}
	if f.Changed("silent") {
		cfg.Silent, _ = f.GetBool("silent")
	}
	if v, _ := f.GetInt("max-attempts"); v > 0 {
		cfg.MaxAttempts = v
	}
	if v, _ := f.GetString("openai-base-url"); cfg.OpenAI.BaseURL == "" || f.Changed("openai-base-url") {
		cfg.OpenAI.BaseURL = v
	}
	if v, _ := f.GetString("openai-api-key"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v, _ := f.GetInt("openai-timeout-sec"); v > 0 {
		cfg.OpenAI.RequestTimeoutSec = v
	}
	if v, _ := f.GetInt("llama-ctx-size"); v > 0 {
		cfg.Llama.CtxSize = v
	}
	if v, _ := f.GetInt("llama-threads"); v > 0 {
		cfg.Llama.Threads = v
	}
	return cfg, nil
}

func buildCatalog(cfg config.Config, log zerolog.Logger) (*catalog.Catalog, error) {
	switch {
	case cfg.CatalogPath != "":
		return catalog.LoadFile(cfg.CatalogPath)
	case cfg.ModelsDir != "":
		return catalog.ScanDir(cfg.ModelsDir)
	}
	log.Warn().Msg("no catalog configured; model ids are passed through unvalidated")
	return nil, nil
}

func buildBackend(cfg config.Config, cat *catalog.Catalog, log zerolog.Logger) (engine.Backend, error) {
	switch cfg.Backend {
	case "", "openai":
		return engine.NewOpenAIBackend(engine.OpenAIConfig{
			BaseURL:        cfg.OpenAI.BaseURL,
			APIKey:         cfg.OpenAI.APIKey,
			RequestTimeout: time.Duration(cfg.OpenAI.RequestTimeoutSec) * time.Second,
		}, log), nil
	case "llama":
		var resolve func(string) (string, bool)
		if cat != nil {
			resolve = cat.ResolvePath
		}
		return engine.NewLlamaBackend(engine.LlamaConfig{
			CtxSize: cfg.Llama.CtxSize,
			Threads: cfg.Llama.Threads,
			Resolve: resolve,
		}, log), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want openai or llama)", cfg.Backend)
}

func runServe(cmd *cobra.Command) error {
	f := cmd.Flags()
	levelStr, _ := f.GetString("log-level")
	log := zerolog.New(os.Stderr).Level(parseLogLevel(levelStr)).With().Timestamp().Logger()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	cat, err := buildCatalog(cfg, log)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	backend, err := buildBackend(cfg, cat, log)
	if err != nil {
		return err
	}

	svc := session.New(session.Config{
		Backend:       backend,
		Catalog:       cat,
		ModelID:       cfg.DefaultModel,
		Silent:        cfg.Silent,
		MaxAttempts:   cfg.MaxAttempts,
		DefaultParams: cfg.DefaultParams,
		Logger:        log,
	})

	httpapi.SetLogger(log)
	if origins, _ := f.GetString("cors-origins"); origins != "" {
		httpapi.SetCORSOptions(true, splitCSV(origins),
			[]string{"GET", "POST", "PUT", "OPTIONS"},
			[]string{"Accept", "Content-Type", "X-Log-Level"})
	}
	if n, _ := f.GetInt64("max-body-bytes"); n > 0 {
		httpapi.SetMaxBodyBytes(n)
	}

	// Cancel in-flight generations when shutting down.
	baseCtx, stopBase := context.WithCancel(context.Background())
	defer stopBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Msg("chatgate listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info().Msg("shutting down")
	stopBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
