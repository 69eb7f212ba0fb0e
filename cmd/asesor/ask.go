package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"asesor/internal/domain"
	"asesor/internal/service"
)

// newAskCmd creates the one-shot question subcommand.
func newAskCmd() *cobra.Command {
	var (
		explain bool
		top     int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Long: `Ask sends one question to the configured assistant and prints the
answer with its sources.

--explain prints the local relevance ranking behind the answer, including
the per-field score breakdown. It always uses the local search.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question must not be empty")
			}

			a, err := newApp(logger)
			if err != nil {
				return err
			}

			if explain {
				return printRanking(a.search.Rank(question, cfg.Company), top)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Backend.TimeoutSecs+30)*time.Second)
			defer cancel()
			ans := a.assistant(logger).Ask(ctx, domain.Query{
				Messages:    []domain.Message{{Role: domain.RoleUser, Content: question}},
				CompanyID:   cfg.Company,
				UserContext: &cfg.Profile,
			})

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ans)
			}

			fmt.Println(ans.Answer)
			for _, s := range ans.Sources {
				fmt.Printf("\n  Fuente: %s · %s\n", s.Category, s.Topic)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "show the local relevance ranking instead of the answer")
	cmd.Flags().IntVar(&top, "top", 5, "number of ranked articles shown with --explain")
	return cmd
}

type breakdownDTO struct {
	Content float64 `json:"content"`
	Title   float64 `json:"title"`
	Tags    float64 `json:"tags"`
	Penalty float64 `json:"penalty"`
	Boosted bool    `json:"boosted"`
}

type rankedDTO struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Source    string       `json:"source"`
	Score     float64      `json:"score"`
	Match     bool         `json:"match"`
	Breakdown breakdownDTO `json:"breakdown"`
}

func printRanking(ranked []service.Ranked, top int) error {
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	rows := make([]rankedDTO, 0, len(ranked))
	for _, r := range ranked {
		b := r.Breakdown
		rows = append(rows, rankedDTO{
			ID:     r.Candidate.Article.ID,
			Title:  r.Candidate.Article.Title,
			Source: r.Candidate.SourceName,
			Score:  b.Total,
			Match:  b.Total >= service.MinScore,
			Breakdown: breakdownDTO{
				Content: b.Content,
				Title:   b.Title,
				Tags:    b.Tags,
				Penalty: b.Penalty,
				Boosted: b.Boosted,
			},
		})
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 || !rows[0].Match {
		fmt.Println("No article reaches the minimum score; the not-found answer would be given.")
	}
	for i, r := range rows {
		d := r.Breakdown
		boost := ""
		if d.Boosted {
			boost = " boosted"
		}
		fmt.Printf("%d. %-7.2f %s  %s\n", i+1, r.Score, r.ID, r.Title)
		fmt.Printf("   content=%.1f title=%.1f tags=%.1f penalty=%.1f%s  [%s]\n",
			d.Content, d.Title, d.Tags, d.Penalty, boost, r.Source)
	}
	return nil
}
