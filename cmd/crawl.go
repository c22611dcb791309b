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
	"context"
	"log/slog"
	"os"

	"github.com/iiifsearch/canvasindexer/internal/io/botio"
	"github.com/iiifsearch/canvasindexer/internal/io/crawlio"
	"github.com/iiifsearch/canvasindexer/internal/io/facetio"
	"github.com/iiifsearch/canvasindexer/internal/io/fetchio"
	canvasindexer "github.com/iiifsearch/canvasindexer/pkg"
	"github.com/iiifsearch/canvasindexer/pkg/config"
	"github.com/spf13/cobra"
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawls all configured activity streams once",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := config.New(opts...)
		if len(cfg.ASSources) == 0 {
			slog.Error("No activity stream sources configured")
			os.Exit(1)
		}
		ci := canvasindexer.New(cfg)
		fetcher := fetchio.New(cfg.FetchRetries)
		facets, err := facetio.New(cfg)
		if err != nil {
			slog.Error("Cannot create facet builder.", "error", err)
			os.Exit(1)
		}
		bots, err := botio.New(cfg, fetcher)
		if err != nil {
			slog.Error("Cannot create bot dispatcher.", "error", err)
			os.Exit(1)
		}
		c, err := crawlio.New(cfg, fetcher, facets, bots)
		if err != nil {
			slog.Error("Cannot create Crawler.", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		_, err = ci.Crawl(context.Background(), c)
		if err != nil {
			slog.Error("Cannot crawl activity streams", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}
