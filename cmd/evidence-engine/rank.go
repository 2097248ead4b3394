package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	yaml "go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank <supplement>",
	Short: "Rank the published evidence for a supplement",
	Long: `Rank searches PubMed with several query strategies, scores every study
on methodology, recency, sample size, and venue, classifies each as
supporting or opposing the supplement, and prints the top studies on
each side with a consensus verdict and confidence score.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := engineConfig(cmd)

		if cfg.Classifier.APIKey == "" {
			return fmt.Errorf("no Anthropic API key: set .secrets/anthropic-api-key, EVIDENCE_ENGINE_ANTHROPIC_API_KEY, or --anthropic-api-key")
		}

		engine := evidence.New(cfg, os.Stderr)
		result, err := engine.Rank(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		asYAML, _ := cmd.Flags().GetBool("yaml")
		switch {
		case asJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		case asYAML:
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(result)
		default:
			printResult(os.Stdout, result)
			return nil
		}
	},
}

// engineConfig layers flag values over config-file values over defaults.
func engineConfig(cmd *cobra.Command) types.EngineConfig {
	cfg := types.DefaultEngineConfig()

	if v := viper.GetInt("pubmed.max_results"); v > 0 {
		cfg.PubMed.MaxResults = v
		cfg.Strategy.MaxResults = v
	}
	if v := viper.GetDuration("pubmed.timeout"); v > 0 {
		cfg.PubMed.Timeout = v
	}
	if v := viper.GetString("classifier.model"); v != "" {
		cfg.Classifier.Model = v
	}
	if v := viper.GetInt("classifier.concurrency"); v > 0 {
		cfg.Classifier.Concurrency = v
	}
	if v := viper.GetInt("ranking.top_positive"); v > 0 {
		cfg.Ranking.TopPositive = v
	}
	if v := viper.GetInt("ranking.top_negative"); v > 0 {
		cfg.Ranking.TopNegative = v
	}
	if viper.IsSet("ranking.min_confidence") {
		cfg.Ranking.MinConfidence = viper.GetFloat64("ranking.min_confidence")
	}
	if viper.IsSet("strategy.include_negative_search") {
		cfg.Strategy.IncludeNegativeSearch = viper.GetBool("strategy.include_negative_search")
	}
	if viper.IsSet("strategy.include_systematic_reviews") {
		cfg.Strategy.IncludeSystematicReviews = viper.GetBool("strategy.include_systematic_reviews")
	}

	flags := cmd.Flags()
	if v, _ := flags.GetInt("max-results"); flags.Changed("max-results") {
		cfg.PubMed.MaxResults = v
		cfg.Strategy.MaxResults = v
	}
	if v, _ := flags.GetInt("top-positive"); flags.Changed("top-positive") {
		cfg.Ranking.TopPositive = v
	}
	if v, _ := flags.GetInt("top-negative"); flags.Changed("top-negative") {
		cfg.Ranking.TopNegative = v
	}
	if v, _ := flags.GetFloat64("min-confidence"); flags.Changed("min-confidence") {
		cfg.Ranking.MinConfidence = v
	}
	if v, _ := flags.GetInt("recent-years"); flags.Changed("recent-years") && v > 0 {
		cfg.Strategy.RecentOnly = true
		cfg.Strategy.RecentWindowYears = v
	}
	if v, _ := flags.GetBool("no-negative-search"); v {
		cfg.Strategy.IncludeNegativeSearch = false
	}
	if v, _ := flags.GetBool("no-systematic-reviews"); v {
		cfg.Strategy.IncludeSystematicReviews = false
	}
	if v, _ := flags.GetString("model"); flags.Changed("model") {
		cfg.Classifier.Model = v
	}

	anthropicKey, _ := flags.GetString("anthropic-api-key")
	cfg.Classifier.APIKey = secretDefault("anthropic-api-key",
		firstNonEmpty(anthropicKey, viper.GetString("anthropic_api_key")))

	ncbiKey, _ := flags.GetString("ncbi-api-key")
	cfg.PubMed.APIKey = secretDefault("ncbi-api-key",
		firstNonEmpty(ncbiKey, viper.GetString("ncbi_api_key")))

	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// printResult renders the human-readable report.
func printResult(w *os.File, r types.RankedResult) {
	fmt.Fprintf(w, "Evidence for %s\n", r.Supplement)
	fmt.Fprintf(w, "Consensus: %s (confidence %d/100)\n", r.Consensus, r.Confidence)
	fmt.Fprintf(w, "Studies: %d supporting, %d opposing, %d neutral\n\n",
		r.TotalPositive, r.TotalNegative, r.TotalNeutral)

	printSide(w, "SUPPORTING", r.Positive, r.AvgPositiveQuality)
	printSide(w, "OPPOSING", r.Negative, r.AvgNegativeQuality)
}

func printSide(w *os.File, label string, entries []types.EvidenceEntry, avgQuality float64) {
	fmt.Fprintf(w, "%s (avg quality %.0f)\n", label, avgQuality)
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (none)")
		fmt.Fprintln(w)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  PMID\tSCORE\tTIER\tYEAR\tSENTIMENT\tTITLE")
	for _, e := range entries {
		title := e.Study.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\t%s\n",
			e.Study.PMID, e.Total, e.Tier, yearString(e.Study.Year),
			e.Sentiment.Sentiment, title)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func yearString(year int) string {
	if year == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", year)
}

func init() {
	rankCmd.Flags().Int("max-results", 20, "maximum IDs requested per search strategy")
	rankCmd.Flags().Int("top-positive", 5, "maximum supporting studies returned")
	rankCmd.Flags().Int("top-negative", 5, "maximum opposing studies returned")
	rankCmd.Flags().Float64("min-confidence", 0.1, "drop classifications below this confidence")
	rankCmd.Flags().Int("recent-years", 0, "restrict the primary search to the last N years")
	rankCmd.Flags().Bool("no-negative-search", false, "disable the negative-evidence query strategy")
	rankCmd.Flags().Bool("no-systematic-reviews", false, "disable the systematic-review query strategy")
	rankCmd.Flags().String("model", "", "classifier model identifier")
	rankCmd.Flags().String("anthropic-api-key", "", "Anthropic API key (overrides .secrets/)")
	rankCmd.Flags().String("ncbi-api-key", "", "NCBI API key for elevated rate limits")
	rankCmd.Flags().Bool("json", false, "output the result as JSON")
	rankCmd.Flags().Bool("yaml", false, "output the result as YAML")

	rootCmd.AddCommand(rankCmd)
}
