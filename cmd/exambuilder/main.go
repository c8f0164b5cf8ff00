package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exambuilder/internal/handler"
	appI18n "github.com/pavelanni/exambuilder/internal/i18n"
	"github.com/pavelanni/exambuilder/internal/llm"
	"github.com/pavelanni/exambuilder/internal/llm/prompts"
	"github.com/pavelanni/exambuilder/internal/manifest"
	"github.com/pavelanni/exambuilder/internal/model"
	"github.com/pavelanni/exambuilder/internal/outline"
	"github.com/pavelanni/exambuilder/internal/results"
	"github.com/pavelanni/exambuilder/internal/store"
)

const sessionCleanupInterval = time.Hour

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "exambuilder",
		Short: "Exam structuring tool and evaluation results dashboard",
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env is normal outside development.
			_ = godotenv.Load()
		},
	}

	serve := serveCmd()
	root.AddCommand(serve, uploadCmd(), watchCmd(), resultsCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `exambuilder --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "exambuilder.db", "SQLite database path")
	f.String("data-dir", "data/processing", "Directory holding one processing folder per exam")
	f.String("results-dir", "data/results", "Directory with evaluation results and index.json")
	f.String("exam-types", "config/exam_types.json", "Exam type catalog offered on upload")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2-vision", "Vision model used for image-to-JSON extraction (empty disables it)")
	f.String("prompt-variant", string(prompts.PromptStrict), "Extraction prompt variant (strict, assisted)")
	f.Bool("skip-llm-check", false, "Do not ping the LLM endpoint on startup")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /builder)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set EXAMBUILDER_ADMIN_PASSWORD)")
	f.Int64("max-upload-mb", 50, "Largest accepted PDF in megabytes")
	f.StringSlice("allowed-origins", []string{"http://localhost:5173"}, "Origins allowed to call the API from a browser")
	f.Duration("page-delay", 250*time.Millisecond, "Pause between rasterized pages")
	f.String("pdftoppm", "pdftoppm", "Path to the pdftoppm binary")
	f.Int("dpi", 300, "Resolution of full page images")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("exambuilder")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/exambuilder")
	v.AddConfigPath("/etc/exambuilder")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := loadExamTypes(db, v.GetString("exam-types")); err != nil {
		return fmt.Errorf("load exam types: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	extractor, err := newExtractor(v)
	if err != nil {
		return err
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServerConfig{
		DataDir:        v.GetString("data-dir"),
		ResultsDir:     v.GetString("results-dir"),
		BasePath:       basePath,
		SecureCookies:  v.GetBool("secure-cookies"),
		MaxUploadBytes: v.GetInt64("max-upload-mb") << 20,
		PageDelay:      v.GetDuration("page-delay"),
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	manifests := manifest.NewStore(cfg.DataDir)
	raster := manifest.Pdftoppm{Bin: v.GetString("pdftoppm"), DPI: v.GetInt("dpi")}
	h, err := handler.New(handler.Deps{
		Store:     db,
		Manifests: manifests,
		Processor: manifest.NewProcessor(manifests, raster, cfg.PageDelay, cfg.MaxUploadBytes),
		LLM:       extractor,
		Results:   results.NewRepository(cfg.ResultsDir),
		Outlines:  outline.NewRegistry(),
		Config:    cfg,
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   v.GetStringSlice("allowed-origins"),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(handler.BasePathMiddleware(basePath))
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(handler.BasePathMiddleware(""))
		h.Routes(r)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cleanupSessions(ctx, db)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("starting server",
		"addr", addr,
		"data_dir", cfg.DataDir,
		"results_dir", cfg.ResultsDir,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"base_path", basePath,
		"max_upload_mb", v.GetInt64("max-upload-mb"),
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := h.Wait(shutdownCtx); err != nil {
		slog.Warn("processing jobs still running at exit", "error", err)
	}
	return nil
}

// newExtractor returns nil when no model is configured; extraction
// endpoints then answer 503.
func newExtractor(v *viper.Viper) (handler.Extractor, error) {
	modelName := v.GetString("llm-model")
	if modelName == "" {
		slog.Warn("no LLM model configured, image-to-JSON extraction disabled")
		return nil, nil
	}
	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using strict", "variant", variant)
		variant = string(prompts.PromptStrict)
	}
	client, err := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), modelName, prompts.PromptVariant(variant))
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if !v.GetBool("skip-llm-check") {
		if err := client.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", modelName)
	}
	return client, nil
}

func cleanupSessions(ctx context.Context, db *store.Store) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("removed expired sessions", "count", n)
			}
		}
	}
}

// loadExamTypes stores the exam type catalog. An unchanged file is skipped;
// a missing one leaves the previously stored catalog in place.
func loadExamTypes(db *store.Store, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("exam types file not found, upload accepts any exam type", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("exam types unchanged, skipping", "path", path)
		return nil
	}

	var catalog model.ExamTypeCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := db.SetExamTypes(catalog); err != nil {
		return err
	}
	if err := db.SetImportedFileHash(path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported exam types", "path", path, "categories", len(catalog.Categories))
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMBUILDER_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
