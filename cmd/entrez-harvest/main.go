// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the entrez-harvest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/entrez-harvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedCreds holds the NCBI credentials loaded from .secrets/ at startup.
var loadedCreds secrets.Credentials

// rootCmd is the base command for the entrez-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "entrez-harvest",
	Short: "Retrieve hemostatic-device article identifiers from PMC and PubMed",
	Long: `entrez-harvest queries the NCBI E-utilities endpoints for articles matching
combinations of hemostatic device names and surgical indicators. The device
and indicator vocabularies are partitioned into boolean queries that respect
the URL length the endpoints accept, results are fetched page by page from
the Entrez history server, and the identifier lists from PMC and PubMed are
merged into a single deduplicated JSON file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		creds, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedCreds = creds
		if creds.APIKey != "" {
			fmt.Fprintln(os.Stderr, "Loaded NCBI API key from .secrets/")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./entrez-harvest.yaml or ~/.config/entrez-harvest/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("entrez-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "entrez-harvest"))
		}
	}

	viper.SetEnvPrefix("ENTREZ_HARVEST")
	viper.AutomaticEnv()

	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("http.retries", defaultRetries)
	viper.SetDefault("http.requests_per_second", defaultRequestsPerSecond)
	viper.SetDefault("query.max_length", defaultMaxQueryLength)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
