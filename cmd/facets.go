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

	"github.com/iiifsearch/canvasindexer/internal/io/facetio"
	canvasindexer "github.com/iiifsearch/canvasindexer/pkg"
	"github.com/iiifsearch/canvasindexer/pkg/config"
	"github.com/spf13/cobra"
)

// facetsCmd represents the facets command
var facetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "Rebuilds the persisted facet summary from the current index",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := config.New(opts...)
		ci := canvasindexer.New(cfg)
		facets, err := facetio.New(cfg)
		if err != nil {
			slog.Error("Cannot create facet builder.", "error", err)
			os.Exit(1)
		}
		err = ci.BuildFacets(context.Background(), facets)
		if err != nil {
			slog.Error("Cannot build facet summary", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(facetsCmd)
}
