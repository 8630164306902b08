package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pavelanni/skillmeter/internal/handler"
	appI18n "github.com/pavelanni/skillmeter/internal/i18n"
	"github.com/pavelanni/skillmeter/internal/llm"
	"github.com/pavelanni/skillmeter/internal/llm/prompts"
	"github.com/pavelanni/skillmeter/internal/metrics"
	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/skills"
	"github.com/pavelanni/skillmeter/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skillmeter",
		Short: "LLM-assisted skill assessment with progress tracking",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), reportCmd(), skillsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `skillmeter --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("db-backend", store.BackendSQLite, "Record store backend (sqlite, mongodb)")
	f.String("db", "skillmeter.db", "SQLite database path")
	f.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	f.String("db-name", "skillmeter", "MongoDB database name")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Also write logs to this file, rotated by size")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	addStoreFlags(f)
	f.String("skills-file", "skills.json", "Skill registry file")
	f.String("llm-provider", llm.ProviderGemini, "LLM provider (gemini, openai, anthropic, mock)")
	f.String("llm-key", "", "API key for the LLM provider")
	f.String("llm-model", "", "LLM model name (empty picks the provider default)")
	f.String("llm-url", "", "OpenAI-compatible API base URL (openai provider only)")
	f.IntP("num-questions", "n", 5, "Number of questions per quiz")
	f.StringP("lang", "l", "en", "UI and prompt language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /skills)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Int("login-rate", 10, "Login and register attempts per minute per client (0 disables)")
	f.String("prompt-variant", string(prompts.VariantStandard), "Grading prompt variant (strict, standard, lenient)")
	addLogFlags(f)
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

	var out io.Writer = os.Stderr
	if path := v.GetString("log-file"); path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SKILLMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("skillmeter")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/skillmeter")
	v.AddConfigPath("/etc/skillmeter")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(ctx context.Context, v *viper.Viper) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Backend:  v.GetString("db-backend"),
		Path:     v.GetString("db"),
		MongoURI: v.GetString("mongo-uri"),
		DBName:   v.GetString("db-name"),
	})
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, v)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	reg := skills.Open(v.GetString("skills-file"))
	if seeded, err := reg.Seed(); err != nil {
		return fmt.Errorf("seed skills: %w", err)
	} else if seeded {
		slog.Info("created skill registry with defaults", "path", reg.Path())
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	if !slices.Contains(appI18n.Languages(), lang) {
		slog.Warn("no translations for language, falling back to the default catalogue", "lang", lang)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.VariantStandard)
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.Provider = v.GetString("llm-provider")
	llmCfg.APIKey = v.GetString("llm-key")
	llmCfg.Model = v.GetString("llm-model")
	llmCfg.BaseURL = v.GetString("llm-url")
	provider, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.Config{
		NumQuestions:  v.GetInt("num-questions"),
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		LoginRate:     v.GetInt("login-rate"),
	}

	h, err := handler.New(db,
		llm.NewQuizGenerator(provider, llmCfg, lang),
		llm.NewAnswerEvaluator(provider, llmCfg, lang, prompts.Variant(promptVariant)),
		reg, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(appI18n.Middleware(lang))

	r.Handle("/metrics", metrics.Handler())
	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Group(func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"provider", llmCfg.Provider,
			"model", provider.ModelID(),
			"store", v.GetString("db-backend"),
			"lang", lang,
			"num_questions", cfg.NumQuestions,
			"prompt_variant", promptVariant,
			"base_path", basePath,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
