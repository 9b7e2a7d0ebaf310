package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/entrez-harvest/internal/archive"
	"github.com/pdiddy/entrez-harvest/internal/entrez"
	"github.com/pdiddy/entrez-harvest/internal/retrieval"
	"github.com/pdiddy/entrez-harvest/internal/vocab"
	"github.com/pdiddy/entrez-harvest/pkg/types"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultRetries           = 3
	defaultRequestsPerSecond = 3.0
	defaultMaxQueryLength    = 1800
	defaultUserAgent         = "entrez-harvest/0.1"
	defaultOutputDir         = "harvest_results"
	archiveFileName          = "archive.db"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Run the harvest against PMC and PubMed",
	Long: `Retrieve partitions the device and indicator vocabularies into boolean
queries, runs each query against the selected NCBI databases, and writes the
merged identifier list to the output directory as retrieved_ids.json.

Intermediate per-query results can be kept for debugging, and each finished
run is recorded in a local archive so the next run can report how many
identifiers are new.`,
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().Bool("mini", false, "use the small built-in vocabulary for a smoke run")
	retrieveCmd.Flags().String("vocab", "", "YAML file overriding the built-in vocabulary")
	retrieveCmd.Flags().Int("start-year", 0, "publication-date lower bound (0 = unset)")
	retrieveCmd.Flags().Int("end-year", 0, "publication-date upper bound (0 = unset)")
	retrieveCmd.Flags().String("db", "all", "database selector: pmc, pubmed, or all")
	retrieveCmd.Flags().String("out", defaultOutputDir, "output directory")
	retrieveCmd.Flags().Bool("intermediate", false, "keep per-query results under the output directory")
	retrieveCmd.Flags().Bool("concurrent", false, "run query tasks concurrently")
	retrieveCmd.Flags().Int("max-in-flight", 3, "bound on concurrent query tasks")
	retrieveCmd.Flags().Int("max-query-len", 0, "query length budget (default from config)")
	retrieveCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default from config)")
	retrieveCmd.Flags().Int("retries", -1, "retries per HTTP request (default from config)")
	retrieveCmd.Flags().Bool("no-archive", false, "skip recording the run in the archive")

	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	v, err := vocabFromFlags(cmd)
	if err != nil {
		return err
	}

	dbFlag, _ := cmd.Flags().GetString("db")
	selector, err := retrieval.ParseSelector(dbFlag)
	if err != nil {
		return err
	}

	cfg := retrievalConfigFromFlags(cmd)
	concurrent, _ := cmd.Flags().GetBool("concurrent")

	client := entrez.NewClient(cfg.HTTPConfig, loadedCreds.APIKey, loadedCreds.Email)

	var progress io.Writer = os.Stdout
	if concurrent {
		progress = retrieval.NewSafeWriter(os.Stdout)
	}
	client.Log = progress

	opts := retrieval.Options{
		Devices:    v.DeviceTerms(),
		Indicators: v.IndicatorTerms(),
		Selector:   selector,
		Concurrent: concurrent,
		Config:     cfg,
	}

	res, err := retrieval.Run(cmd.Context(), client, opts, progress)
	if err != nil {
		return err
	}

	if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive {
		recordRun(cmd.Context(), cfg.OutputDir, selector, res)
	}
	return nil
}

// retrievalConfigFromFlags assembles the run configuration, falling back to
// viper for any flag left at its zero value.
func retrievalConfigFromFlags(cmd *cobra.Command) types.RetrievalConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("http.timeout")
	}
	retries, _ := cmd.Flags().GetInt("retries")
	if retries < 0 {
		retries = viper.GetInt("http.retries")
	}
	maxLen, _ := cmd.Flags().GetInt("max-query-len")
	if maxLen == 0 {
		maxLen = viper.GetInt("query.max_length")
	}
	startYear, _ := cmd.Flags().GetInt("start-year")
	endYear, _ := cmd.Flags().GetInt("end-year")
	outDir, _ := cmd.Flags().GetString("out")
	intermediate, _ := cmd.Flags().GetBool("intermediate")
	maxInFlight, _ := cmd.Flags().GetInt("max-in-flight")

	return types.RetrievalConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:           timeout,
			UserAgent:         defaultUserAgent,
			MaxRetries:        retries,
			RequestsPerSecond: viper.GetFloat64("http.requests_per_second"),
		},
		MaxQueryLength: maxLen,
		StartYear:      startYear,
		EndYear:        endYear,
		OutputDir:      outDir,
		Intermediate:   intermediate,
		MaxInFlight:    maxInFlight,
	}
}

// vocabFromFlags picks the vocabulary: an explicit file wins, then --mini,
// then the full built-in set.
func vocabFromFlags(cmd *cobra.Command) (vocab.Vocabulary, error) {
	path, _ := cmd.Flags().GetString("vocab")
	if path != "" {
		return vocab.Load(path)
	}
	if mini, _ := cmd.Flags().GetBool("mini"); mini {
		return vocab.BuiltinMini(), nil
	}
	return vocab.Builtin(), nil
}

// recordRun stores the finished run in the output directory's archive and
// reports how many identifiers were not seen in earlier runs. Archive
// failures are warnings; the harvest results are already on disk.
func recordRun(ctx context.Context, outputDir string, selector retrieval.Selector, res retrieval.Result) {
	store, err := archive.Open(filepath.Join(outputDir, archiveFileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: archive unavailable: %v\n", err)
		return
	}
	defer store.Close()

	dbs, _ := selector.Databases()
	names := make([]string, len(dbs))
	for i, db := range dbs {
		names[i] = string(db)
	}

	run := archive.Run{
		ID:         archive.NewRunID(),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Databases:  strings.Join(names, ","),
		QueryCount: res.Queries,
	}
	newCount, err := store.Record(ctx, run, res.IDs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: archive record failed: %v\n", err)
		return
	}
	fmt.Printf("%d of %d identifiers are new since the last run\n", newCount, len(res.IDs))
}
