package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/entrez-harvest/internal/query"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Print the queries a harvest would run, without calling NCBI",
	Long: `Queries expands the vocabulary with the current settings and prints every
boolean query the retrieve command would send. Useful for checking the
length budget and the year filter before spending requests.`,
	RunE: runQueries,
}

func init() {
	queriesCmd.Flags().Bool("mini", false, "use the small built-in vocabulary")
	queriesCmd.Flags().String("vocab", "", "YAML file overriding the built-in vocabulary")
	queriesCmd.Flags().Int("start-year", 0, "publication-date lower bound (0 = unset)")
	queriesCmd.Flags().Int("end-year", 0, "publication-date upper bound (0 = unset)")
	queriesCmd.Flags().Int("max-query-len", 0, "query length budget (default from config)")
	queriesCmd.Flags().Bool("json", false, "output queries as JSON")

	rootCmd.AddCommand(queriesCmd)
}

func runQueries(cmd *cobra.Command, args []string) error {
	v, err := vocabFromFlags(cmd)
	if err != nil {
		return err
	}

	maxLen, _ := cmd.Flags().GetInt("max-query-len")
	if maxLen == 0 {
		maxLen = viper.GetInt("query.max_length")
	}
	startYear, _ := cmd.Flags().GetInt("start-year")
	endYear, _ := cmd.Flags().GetInt("end-year")

	queries, err := query.Build(v.DeviceTerms(), v.IndicatorTerms(), maxLen, startYear, endYear)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(queries)
	}

	for i, q := range queries {
		fmt.Printf("%3d  (%d chars)  %s\n", i+1, len(q), q)
	}
	fmt.Printf("%d queries\n", len(queries))
	return nil
}
