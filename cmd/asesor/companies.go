package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newCompaniesCmd creates the company listing subcommand.
func newCompaniesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "companies",
		Short: "List the handling companies that can be selected",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(logger)
			if err != nil {
				return err
			}
			companies := a.companies(cmd.Context(), logger)
			articles := make(map[string]int)
			for _, d := range a.kb.Documents() {
				if d.CompanyID != "" {
					articles[d.CompanyID] = len(d.Articles)
				}
			}

			if outputJSON {
				type row struct {
					ID           string `json:"id"`
					Name         string `json:"name"`
					Color        string `json:"color,omitempty"`
					HasAgreement bool   `json:"has_agreement"`
					Articles     int    `json:"articles"`
				}
				rows := make([]row, 0, len(companies))
				for _, c := range companies {
					rows = append(rows, row{ID: c.ID, Name: c.Name, Color: c.Color, HasAgreement: a.kb.HasAgreement(c.ID), Articles: articles[c.ID]})
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			for _, c := range companies {
				if a.kb.HasAgreement(c.ID) {
					fmt.Printf("✓ %-12s %-28s %d artículos\n", c.ID, c.Name, articles[c.ID])
					continue
				}
				fmt.Printf("  %-12s %s\n", c.ID, c.Name)
			}
			fmt.Println("\n✓ convenio incluido en la base local")
			return nil
		},
	}
}
