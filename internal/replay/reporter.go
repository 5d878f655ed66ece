package replay

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Reporter writes replay results to disk.
type Reporter struct {
	results    *Results
	outputPath string
}

func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{results: results, outputPath: outputPath}
}

// GenerateReport writes the summary, the round log and the JSON report.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateRoundLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "replay_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "REPLAY RESULTS SUMMARY\n")
	fmt.Fprintf(file, "======================\n\n")

	fmt.Fprintf(file, "Time Period: %s to %s\n",
		r.results.StartTime.Format("2006-01-02 15:04:05"),
		r.results.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Rounds: %d\n", r.results.TotalRounds)
	fmt.Fprintf(file, "Wins: %d  Losses: %d\n", r.results.Wins, r.results.Losses)
	fmt.Fprintf(file, "Win Rate: %.2f%%\n", r.results.WinRate*100)
	fmt.Fprintf(file, "Max Loss Streak: %d\n\n", r.results.MaxLossStreak)

	fmt.Fprintf(file, "PERFORMANCE BY STRATEGY\n")
	fmt.Fprintf(file, "-----------------------\n")
	strategies := make([]string, 0, len(r.results.ByStrategy))
	for name := range r.results.ByStrategy {
		strategies = append(strategies, name)
	}
	sort.Strings(strategies)
	for _, name := range strategies {
		st := r.results.ByStrategy[name]
		fmt.Fprintf(file, "%s: %d rounds, %.2f%% win rate\n", name, st.Rounds, st.WinRate*100)
	}

	fmt.Fprintf(file, "\nFINAL PREDICTOR STATE\n")
	fmt.Fprintf(file, "---------------------\n")
	for _, p := range r.results.Predictors {
		fmt.Fprintf(file, "%s: weight=%.3f ema=%.3f wins=%d losses=%d\n",
			p.ID, p.Weight, p.EMAAccuracy, p.Wins, p.Losses)
	}

	log.Info().Str("file", summaryPath).Msg("summary report generated")
	return nil
}

func (r *Reporter) generateRoundLog() error {
	csvPath := filepath.Join(r.outputPath, "round_log.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create round log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ts", "predicted", "actual", "strategy", "confidence", "win"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, round := range r.results.Rounds {
		row := []string{
			round.Ts.Format(time.RFC3339),
			string(round.Predicted),
			string(round.Actual),
			string(round.Strategy),
			strconv.FormatFloat(round.Confidence, 'f', 2, 64),
			strconv.FormatBool(round.Win),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	log.Info().Str("file", csvPath).Int("rounds", len(r.results.Rounds)).Msg("round log generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "replay_results.json")
	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("write JSON report: %w", err)
	}
	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}
