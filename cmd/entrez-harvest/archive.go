package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/entrez-harvest/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List recorded harvest runs",
	Long: `Archive prints the harvest runs recorded in the output directory's archive
database, newest first.`,
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().String("out", defaultOutputDir, "output directory holding the archive")
	archiveCmd.Flags().Int("limit", 10, "number of runs to show (0 = all)")
	archiveCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	path := filepath.Join(outDir, archiveFileName)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no archive at %s", path)
	}

	store, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  dbs=%s queries=%d results=%d new=%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.ID[:8], r.Databases, r.QueryCount, r.ResultCount, r.NewCount)
	}
	return nil
}
