package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/polisight/polisight/internal/audio"
	"github.com/polisight/polisight/internal/config"
	"github.com/polisight/polisight/internal/patterns"
	"github.com/polisight/polisight/internal/pipeline"
	"github.com/polisight/polisight/internal/scoring"
	"github.com/polisight/polisight/internal/storage"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze an insurance policy document",
	Long: `Analyze an insurance policy document.

Examples:
  polisight analyze --file ./policy.pdf
  polisight analyze --text "Policy effective date: 01/01/2024 ..."
  polisight analyze --file ./policy.pdf --speak
  polisight analyze --file ./policy.pdf --save-audio report.wav`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		text, _ := cmd.Flags().GetString("text")
		asJSON, _ := cmd.Flags().GetBool("json")
		speak, _ := cmd.Flags().GetBool("speak")
		saveAudio, _ := cmd.Flags().GetString("save-audio")

		if file == "" && text == "" {
			return fmt.Errorf("one of --file or --text is required")
		}

		req := map[string]any{}
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["name"] = file
			req["content"] = base64.StdEncoding.EncodeToString(data)
			req["encoding"] = "base64"
		default:
			req["content"] = text
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Analyzing policy...")
		resp, err := client.post("/analyses", req)
		if err != nil {
			return err
		}

		var report pipeline.Report
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printReport(report)

		if speak || saveAudio != "" {
			if err := narrate(cmd.Context(), report.Narration(), saveAudio); err != nil {
				printWarning("audio narration failed: %v", err)
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("file", "", "policy file to analyze (PDF or text)")
	analyzeCmd.Flags().String("text", "", "policy text to analyze")
	analyzeCmd.Flags().Bool("json", false, "print the raw report as JSON")
	analyzeCmd.Flags().Bool("speak", false, "read the report summary aloud")
	analyzeCmd.Flags().String("save-audio", "", "save the spoken summary to a file")
}

func printReport(report pipeline.Report) {
	fmt.Println()
	printHeading("Policy Analysis: " + report.DocumentID)

	reportField("Verdict", "%s", verdictLabel(report.Recommendation.Verdict))
	reportField("Reason", "%s", report.Recommendation.Reason)
	reportField("Risk score", "%d", report.Recommendation.Score)

	if len(report.Dates) > 0 {
		printHeading("\nKey Dates")
		for _, kind := range []patterns.DateKind{
			patterns.DatePolicyStart,
			patterns.DatePolicyEnd,
			patterns.DateRenewal,
			patterns.DateClaim,
			patterns.DatePremiumDue,
		} {
			if v, ok := report.Dates[kind]; ok {
				reportField(string(kind), "%s", v)
			}
		}
	}

	high, medium, low := report.Risks.Counts()
	printHeading("\nRisk Findings")
	reportField("Counts", "%d high, %d medium, %d low", high, medium, low)
	for _, f := range report.Risks.High {
		fmt.Printf("  %s\n", colorize(colorRed, f))
	}
	for _, f := range report.Risks.Medium {
		fmt.Printf("  %s\n", colorize(colorYellow, f))
	}
	for _, f := range report.Risks.Low {
		fmt.Printf("  %s\n", colorize(colorGreen, f))
	}

	if len(report.Recommendation.FinancialFigures) > 0 {
		printHeading("\nFinancial Figures")
		for _, f := range report.Recommendation.FinancialFigures {
			fmt.Printf("  %s\n", f)
		}
	}

	printHeading("\nSummary")
	fmt.Printf("  %s\n", report.Summary)
	if report.SummaryError != "" {
		printWarning("summary degraded: %s", report.SummaryError)
	}

	if report.ReuseOf != nil {
		printWarning("Near-duplicate of analysis %d (%s, similarity %.3f); results recomputed anyway",
			report.ReuseOf.ID, report.ReuseOf.DocumentID, report.ReuseOf.Similarity)
	}
	if len(report.Similar) > 0 {
		printHeading("\nSimilar Policies")
		for _, s := range report.Similar {
			fmt.Printf("  %s  %s  [%.3f]  %s\n",
				colorize(colorCyan, fmt.Sprintf("#%d", s.ID)), s.DocumentID, s.Similarity, s.Verdict)
		}
	}
	if report.SimilarityError != "" {
		printWarning("similarity degraded: %s", report.SimilarityError)
	}

	if report.Saved {
		printSuccess("Saved as analysis %d", report.ID)
	} else {
		printWarning("not saved: %s", report.SaveError)
	}
}

// reportField prints a labeled report line to stdout, where the rest of the
// report body goes; printStatus writes to stderr and is for command status.
func reportField(label string, format string, args ...any) {
	fmt.Printf("  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// truncateSummary caps a summary at max runes so multi-byte characters are
// never split mid-sequence.
func truncateSummary(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func verdictLabel(v scoring.Verdict) string {
	switch v {
	case scoring.Recommended:
		return colorize(colorGreen, string(v))
	case scoring.ConditionallyRecommended:
		return colorize(colorYellow, string(v))
	default:
		return colorize(colorRed, string(v))
	}
}

// --- analyses ---

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Browse stored policy analyses",
}

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(fmt.Sprintf("/analyses?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []storage.AnalysisRecord
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No analyses found.")
			return nil
		}

		for _, rec := range records {
			summary := truncateSummary(rec.Summary, 80)
			fmt.Printf("%s  %s  %s  %s\n",
				colorize(colorCyan, fmt.Sprintf("#%d", rec.ID)),
				rec.CreatedAt.Format("2006-01-02 15:04"),
				rec.Recommendation.Verdict,
				summary,
			)
		}
		return nil
	},
}

var analysesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single analysis as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/analyses/" + args[0])
		if err != nil {
			return err
		}

		var rec any
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	analysesListCmd.Flags().Int("limit", 20, "maximum number of analyses to list")
	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <id> <question>",
	Short: "Ask a question about a stored analysis",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		question := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/analyses/"+id+"/questions", map[string]string{
			"question": question,
		})
		if err != nil {
			return err
		}

		var result struct {
			Answer string `json:"answer"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		return nil
	},
}

// --- speak ---

var speakCmd = &cobra.Command{
	Use:   "speak <id>",
	Short: "Read a stored analysis aloud",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetString("save")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/analyses/" + args[0])
		if err != nil {
			return err
		}

		var rec storage.AnalysisRecord
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}

		report := pipeline.Report{
			DocumentID:     rec.DocumentID,
			Summary:        rec.Summary,
			Dates:          rec.Dates,
			Risks:          rec.Risks,
			Recommendation: rec.Recommendation,
		}
		return narrate(cmd.Context(), report.Narration(), save)
	},
}

func init() {
	speakCmd.Flags().String("save", "", "save the spoken summary to a file instead of playing it")
}

// narrate speaks text aloud, or writes it to an audio file when savePath is
// set.
func narrate(ctx context.Context, text, savePath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	speaker := audio.NewSpeaker(cfg.Audio.Rate)
	if savePath != "" {
		if err := speaker.SaveTo(ctx, text, savePath); err != nil {
			return err
		}
		printSuccess("Audio saved to %s", savePath)
		return nil
	}
	return speaker.Speak(ctx, text)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
