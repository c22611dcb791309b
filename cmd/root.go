/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	canvasindexer "github.com/iiifsearch/canvasindexer/pkg"
	"github.com/iiifsearch/canvasindexer/pkg/config"
	"github.com/gnames/gnsys"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//go:embed canvasindexer.yaml
var configText string

var (
	opts []config.Option
)

type cfgData struct {
	CacheDir               string
	ASSources              []string
	BotURLs                []string
	CallbackURL            string
	PgHost                 string
	PgUser                 string
	PgPass                 string
	PgDB                   string
	ThumbnailWidth         int
	ThumbnailHeight        int
	MaxFeedPages           int
	FetchRetries           int
	KeepOrphanCanvases     bool
	FacetLabelSortTop      []string
	FacetLabelSortBottom   []string
	FacetValueSortAlphanum []string
	FacetValueSortTop      map[string][]string
	FacetValueSortBottom   map[string][]string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "canvasindexer",
	Short: "Crawls IIIF curation activity streams into a search index",
	Long: `canvasindexer crawls Activity Streams of IIIF curations and
maintains a denormalized index of terms, canvases and curations for
keyword and facet search.`,
	Run: func(cmd *cobra.Command, args []string) {
		version, err := cmd.Flags().GetBool("version")
		if err != nil {
			slog.Error("Cannot get flag", "error", err)
			os.Exit(1)
		}
		if version {
			fmt.Printf(
				"\nversion: %s\nbuild: %s\n\n",
				canvasindexer.Version, canvasindexer.Build,
			)
			os.Exit(0)
		}

		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	logger := slog.New(tint.NewHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rootCmd.Flags().BoolP("version", "V", false, "Returns version and build date")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	var homeDir, cfgDir string
	configFile := "canvasindexer"

	// Find home directory.
	homeDir, err = os.UserHomeDir()
	if err != nil {
		slog.Error("Cannot find home dir", "error", err)
		os.Exit(1)
	}
	cfgDir = filepath.Join(homeDir, ".config")

	// Search config in home directory with name "canvasindexer" (without
	// extension).
	viper.AddConfigPath(cfgDir)
	viper.SetConfigName(configFile)

	configPath := filepath.Join(cfgDir, fmt.Sprintf("%s.yaml", configFile))
	touchConfigFile(configPath)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		slog.Error("Config file canvasindexer.yaml not found", "error", err)
		os.Exit(1)
	}
	getOpts()
}

// getOpts imports data from the configuration file. Some of the settings can
// be overriden by command line flags.
func getOpts() []config.Option {
	cfg := cfgData{}
	err := viper.Unmarshal(&cfg)
	if err != nil {
		slog.Error("Cannot unmarshal config file", "error", err)
	}

	if cfg.CacheDir != "" {
		opts = append(opts, config.OptCacheDir(cfg.CacheDir))
	}
	if len(cfg.ASSources) > 0 {
		opts = append(opts, config.OptASSources(cfg.ASSources))
	}
	if len(cfg.BotURLs) > 0 {
		opts = append(opts, config.OptBotURLs(cfg.BotURLs))
	}
	if cfg.CallbackURL != "" {
		opts = append(opts, config.OptCallbackURL(cfg.CallbackURL))
	}
	if cfg.PgHost != "" {
		opts = append(opts, config.OptPgHost(cfg.PgHost))
	}
	if cfg.PgUser != "" {
		opts = append(opts, config.OptPgUser(cfg.PgUser))
	}
	if cfg.PgPass != "" {
		opts = append(opts, config.OptPgPass(cfg.PgPass))
	}
	if cfg.PgDB != "" {
		opts = append(opts, config.OptPgDB(cfg.PgDB))
	}
	if cfg.ThumbnailWidth != 0 {
		opts = append(opts, config.OptThumbnailWidth(cfg.ThumbnailWidth))
	}
	if cfg.ThumbnailHeight != 0 {
		opts = append(opts, config.OptThumbnailHeight(cfg.ThumbnailHeight))
	}
	if cfg.MaxFeedPages != 0 {
		opts = append(opts, config.OptMaxFeedPages(cfg.MaxFeedPages))
	}
	if cfg.FetchRetries != 0 {
		opts = append(opts, config.OptFetchRetries(cfg.FetchRetries))
	}
	if cfg.KeepOrphanCanvases {
		opts = append(opts, config.OptKeepOrphanCanvases(true))
	}
	if len(cfg.FacetLabelSortTop) > 0 {
		opts = append(opts, config.OptFacetLabelSortTop(cfg.FacetLabelSortTop))
	}
	if len(cfg.FacetLabelSortBottom) > 0 {
		opts = append(opts,
			config.OptFacetLabelSortBottom(cfg.FacetLabelSortBottom))
	}
	if len(cfg.FacetValueSortAlphanum) > 0 {
		opts = append(opts,
			config.OptFacetValueSortAlphanum(cfg.FacetValueSortAlphanum))
	}
	if len(cfg.FacetValueSortTop) > 0 {
		opts = append(opts, config.OptFacetValueSortTop(cfg.FacetValueSortTop))
	}
	if len(cfg.FacetValueSortBottom) > 0 {
		opts = append(opts,
			config.OptFacetValueSortBottom(cfg.FacetValueSortBottom))
	}
	return opts
}

// touchConfigFile checks if config file exists, and if not, it gets created.
func touchConfigFile(configPath string) {
	fileExists, _ := gnsys.FileExists(configPath)
	if fileExists {
		return
	}

	slog.Info("Creating config file", "path", configPath)
	createConfig(configPath)
}

// createConfig creates config file.
func createConfig(path string) {
	err := gnsys.MakeDir(filepath.Dir(path))
	if err != nil {
		slog.Error("Cannot create config dir", "error", err)
		os.Exit(1)
	}

	err = os.WriteFile(path, []byte(configText), 0644)
	if err != nil {
		slog.Error("Cannot write to config file", "error", err)
		os.Exit(1)
	}
}
