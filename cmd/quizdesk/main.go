package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/quizdesk/internal/examrun"
	"github.com/pavelanni/quizdesk/internal/handler"
	appI18n "github.com/pavelanni/quizdesk/internal/i18n"
	"github.com/pavelanni/quizdesk/internal/llm"
	"github.com/pavelanni/quizdesk/internal/model"
	"github.com/pavelanni/quizdesk/internal/store"
	"github.com/pavelanni/quizdesk/internal/token"
	"github.com/pavelanni/quizdesk/internal/web"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizdesk",
		Short: "Quiz-taking web application with anti-cheat exam runner",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), generateCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizdesk --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizdesk.db", "SQLite database path")
	f.String("jwt-secret", "", "Token signing secret (or set QUIZDESK_JWT_SECRET)")
	f.Duration("token-lifetime", token.DefaultLifetime, "Session token validity window")
	f.String("client-origin", "", "Allowed cross-origin client address (empty = same-origin only)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies (enables SameSite=None)")
	f.Duration("violation-cooldown", examrun.DefaultCooldown, "Debounce window for focus-loss events")
	f.StringP("lang", "l", "en", "Message language (en, ru)")
	f.String("admin-password", "", "Initial admin password (or set QUIZDESK_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all quiz results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "quizdesk.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a quiz with an OpenAI-compatible LLM",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("topic", "t", "", "Quiz topic (required)")
	f.IntP("num-questions", "n", 5, "Number of questions to draft")
	f.Int("num-options", 4, "Options per question")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("topic")

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

	v.SetEnvPrefix("QUIZDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizdesk")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizdesk")
	v.AddConfigPath("/etc/quizdesk")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
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

	// Seed a default admin if none exists.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg := model.ServerConfig{
		Addr:              v.GetString("addr"),
		DBPath:            v.GetString("db"),
		JWTSecret:         v.GetString("jwt-secret"),
		TokenLifetime:     v.GetDuration("token-lifetime"),
		ClientOrigin:      v.GetString("client-origin"),
		SecureCookies:     v.GetBool("secure-cookies"),
		ViolationCooldown: v.GetDuration("violation-cooldown"),
		Lang:              lang,
	}

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenLifetime)
	if err != nil {
		return fmt.Errorf("create token issuer: %w", err)
	}

	runner := examrun.New(db, examrun.Config{Cooldown: cfg.ViolationCooldown})
	h := handler.New(db, issuer, runner, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if cfg.ClientOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{cfg.ClientOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Route("/api", h.Routes)
	r.Handle("/*", web.Handler())

	slog.Info("starting server",
		"addr", cfg.Addr,
		"db", cfg.DBPath,
		"client_origin", cfg.ClientOrigin,
		"token_lifetime", cfg.TokenLifetime,
		"secure_cookies", cfg.SecureCookies,
		"lang", lang,
	)
	return http.ListenAndServe(cfg.Addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ListResults()
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{"results": results}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	return writeOutput(v.GetString("output"), data)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}

	draft, err := client.GenerateQuiz(ctx,
		v.GetString("topic"),
		v.GetInt("num-questions"),
		v.GetInt("num-options"),
	)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	slog.Info("drafted quiz", "title", draft.Title, "questions", len(draft.Questions))

	return writeOutput(v.GetString("output"), data)
}

func writeOutput(outPath string, data []byte) error {
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.AdminCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or QUIZDESK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "email", "admin@example.com")
	return nil
}
