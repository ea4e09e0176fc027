package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	embhashing "docqa/internal/embedding/hashing"
	embopenai "docqa/internal/embedding/openai"
	"docqa/internal/extract"
	llmopenai "docqa/internal/llm/openai"
	"docqa/internal/retriever"
	"docqa/internal/server"
	"docqa/internal/service"
	"docqa/internal/store"
	"docqa/internal/summarizer"
	"docqa/internal/synthesis"
	"docqa/internal/tui"
)

var cfgPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Session-scoped document question answering",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ~/.config/docqa/config.yaml)")
	root.AddCommand(serveCmd(), consoleCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := assemble()
			if err != nil {
				return err
			}
			defer app.close()

			srv := server.New(app.svc, app.log)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.Start(app.cfg.Server.Addr) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				app.log.Infow("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

func consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console <file>",
		Short: "Ingest a document and ask questions interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := assemble()
			if err != nil {
				return err
			}
			defer app.close()

			path := args[0]
			ex, err := extract.ForFilename(path)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			blocks, err := ex.Extract(f)
			if err != nil {
				return err
			}
			sess, err := app.svc.Ingest(cmd.Context(), path, blocks)
			if err != nil {
				return err
			}

			_, err = tea.NewProgram(tui.New(app.svc, sess)).Run()
			return err
		},
	}
}

// app holds the assembled components shared by the serve and console commands.
type app struct {
	cfg *config.AppConfig
	svc *service.DocumentService
	st  *store.Store
	log *zap.SugaredLogger
}

func (a *app) close() {
	a.st.Close()
	_ = a.log.Sync()
}

func assemble() (*app, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	log := logger.Sugar()

	var cfg *config.AppConfig
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.New(cfg.Chunker.TargetSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Dir, emb, log)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	svc := service.New(
		ch,
		summarizer.NewFrequency(),
		st,
		retriever.New(st, emb, cfg.Retriever.TopK),
		synthesis.New(provider),
		cfg.Preview.MaxSentences,
		log,
	)
	return &app{cfg: cfg, svc: svc, st: st, log: log}, nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing", "":
		return embhashing.New(), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrInvalidInput)
		}
		return embopenai.NewClient(embopenai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidInput, cfg.Embedder.Type)
	}
}

func buildProvider(cfg *config.AppConfig) (domain.CompletionProvider, error) {
	switch cfg.LLM.Type {
	case "openai", "":
		oc := cfg.LLM.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("%w: openai llm config missing", domain.ErrInvalidInput)
		}
		return llmopenai.NewClient(llmopenai.Config{
			BaseURL:     oc.BaseURL,
			APIKeyEnv:   oc.APIKeyEnv,
			Model:       oc.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("%w: unknown llm %q", domain.ErrInvalidInput, cfg.LLM.Type)
	}
}
