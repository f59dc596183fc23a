package main

import (
	"encoding/json"
	"fmt"

	"github.com/meghashyamc/bufsearch/config"
	"github.com/meghashyamc/bufsearch/db/bufferdb"
	"github.com/meghashyamc/bufsearch/db/resultdb"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
	"github.com/meghashyamc/bufsearch/services/search"
	"github.com/meghashyamc/bufsearch/services/session"
	"github.com/spf13/cobra"
)

type grepOptions struct {
	regex       bool
	matchCase   bool
	exclude     string
	refine      []string
	include     []string
	excludeGlob []string
	noDedupe    bool
	json        bool
}

var grepOpts grepOptions

var grepCmd = &cobra.Command{
	Use:   "grep <query> [root]",
	Short: "Load files under root into buffers and search them once",
	Long: `Loads every text file under root (default: the current directory) into an
in-memory buffer set, runs one search over it and prints the matches.

Each --refine searches again within the lines matched by the previous step.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGrep,
}

func init() {
	grepCmd.Flags().BoolVarP(&grepOpts.regex, "regex", "e", false, "treat queries as regular expressions")
	grepCmd.Flags().BoolVarP(&grepOpts.matchCase, "match-case", "c", false, "match case")
	grepCmd.Flags().StringVarP(&grepOpts.exclude, "exclude", "x", "", "drop lines that match this query")
	grepCmd.Flags().StringArrayVarP(&grepOpts.refine, "refine", "r", nil, "search again within the previous matches (repeatable)")
	grepCmd.Flags().StringArrayVar(&grepOpts.include, "include", nil, "only load files matching this glob (repeatable)")
	grepCmd.Flags().StringArrayVar(&grepOpts.excludeGlob, "exclude-glob", nil, "skip files matching this glob (repeatable)")
	grepCmd.Flags().BoolVar(&grepOpts.noDedupe, "no-dedupe", false, "rescan a line once per parent match when refining")
	grepCmd.Flags().BoolVar(&grepOpts.json, "json", false, "output the final response as JSON")
	rootCmd.AddCommand(grepCmd)
}

func runGrep(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 2 {
		root = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.GetLogLevel())

	buffers := bufferdb.New(log)
	filter := session.TreeFilter{Include: grepOpts.include, Exclude: grepOpts.excludeGlob}
	if _, err := session.LoadTree(log, buffers, root, filter, cfg.GetMaxBufferSize()); err != nil {
		return err
	}

	service := search.New(log, buffers, resultdb.New(log), nil)
	dedupe := !grepOpts.noDedupe

	response, err := service.Search(models.SearchRequest{
		Query:        args[0],
		IsRegex:      grepOpts.regex,
		MatchCase:    grepOpts.matchCase,
		ExcludeQuery: grepOpts.exclude,
	})
	if err != nil {
		return err
	}

	for _, query := range grepOpts.refine {
		scope := models.RefineScope(response.SearchID)
		response, err = service.Search(models.SearchRequest{
			Query:       query,
			IsRegex:     grepOpts.regex,
			MatchCase:   grepOpts.matchCase,
			Scope:       &scope,
			DedupeLines: &dedupe,
		})
		if err != nil {
			return err
		}
	}

	if grepOpts.json {
		return outputGrepJSON(cmd, response)
	}
	return outputGrepLines(cmd, response)
}

func outputGrepJSON(cmd *cobra.Command, response *models.SearchResponse) error {
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputGrepLines(cmd *cobra.Command, response *models.SearchResponse) error {
	for _, result := range response.Results {
		for _, match := range result.Matches {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s\n", result.Title, match.Line, match.Column, match.LineText)
		}
	}
	if len(response.Results) == 0 {
		cmd.PrintErrln("No matches found.")
	}
	return nil
}
