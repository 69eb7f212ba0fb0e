// Package main provides the asesor CLI: a labour-law assistant for airport
// handling staff that answers from the statute and collective agreements.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"asesor/internal/backend"
	"asesor/internal/config"
	"asesor/internal/domain"
	"asesor/internal/knowledge"
	"asesor/internal/observability"
	"asesor/internal/relevance"
	"asesor/internal/service"
	"asesor/internal/textnorm"
)

var (
	// Global flags
	cfgFile    string
	company    string
	outputJSON bool

	cfg    *config.AppConfig
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "asesor",
	Short: "Legal assistant for airport handling workers",
	Long: `asesor answers labour questions from the Estatuto de los Trabajadores,
case law and the collective agreement of the selected handling company.

In local mode answers come from the built-in keyword search. In remote mode
questions are sent to the Asistente Handling backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; the file only supplies ASESOR_* defaults.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, _, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if company != "" {
			cfg.Company = company
		}

		format := cfg.Log.Format
		if outputJSON {
			format = "json"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Log.Level,
			Format:      format,
			ServiceName: "asesor",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: ./config.yaml or ~/.config/asesor/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&company, "company", "", "handling company ID whose agreement is searched")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCompaniesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the components every subcommand shares.
type app struct {
	kb     *knowledge.Base
	search *service.SearchService
	client *backend.Client // nil in local mode
}

func newApp(log zerolog.Logger) (*app, error) {
	kb, err := loadKnowledge()
	if err != nil {
		return nil, err
	}
	a := &app{
		kb:     kb,
		search: service.NewSearchService(kb, textnorm.Default(), relevance.New(cfg.Scoring), log),
	}
	log.Debug().
		Int("articles", kb.ArticleCount()).
		Int("companies", len(kb.Companies())).
		Msg("knowledge base loaded")

	if cfg.Mode == config.ModeRemote {
		a.client, err = backend.NewClient(backend.Config{
			BaseURL:    cfg.Backend.BaseURL,
			Timeout:    time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Backend.MaxRetries,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("backend client: %w", err)
		}
	}
	return a, nil
}

func loadKnowledge() (*knowledge.Base, error) {
	if cfg.Knowledge.Dir != "" {
		kb, err := knowledge.LoadDir(cfg.Knowledge.Dir)
		if err != nil {
			return nil, fmt.Errorf("load knowledge from %s: %w", cfg.Knowledge.Dir, err)
		}
		return kb, nil
	}
	return knowledge.Builtin()
}

// assistant returns the answer engine selected by the configured mode.
func (a *app) assistant(log zerolog.Logger) domain.Assistant {
	if a.client != nil {
		return backend.NewRemoteAssistant(a.client, log, cfg.IsProduction())
	}
	latency := time.Duration(cfg.Local.SimulatedLatencyMs) * time.Millisecond
	return service.NewLocalAssistant(a.search, latency)
}

// companies lists the selectable companies. In remote mode the backend's
// list is preferred and the local registry is the fallback.
func (a *app) companies(ctx context.Context, log zerolog.Logger) []domain.Company {
	if a.client != nil {
		list, err := a.client.Companies(ctx)
		if err == nil && len(list) > 0 {
			return list
		}
		log.Warn().Err(err).Msg("backend company list unavailable, using local registry")
	}
	return a.kb.Companies()
}
