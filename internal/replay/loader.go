package replay

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/signal"
)

// LoadDraws reads historical draws from path, picking the parser from the
// file extension (.csv or .json). Draws are returned oldest first.
func LoadDraws(path string) ([]signal.Event, error) {
	switch {
	case strings.HasSuffix(path, ".csv"):
		return LoadCSV(path)
	case strings.HasSuffix(path, ".json"):
		return LoadJSON(path)
	}
	return nil, fmt.Errorf("unsupported data format: %s", path)
}

// LoadCSV parses a draw file with two columns per row: an RFC3339 timestamp
// and the drawn number in [0,9]. A header row is skipped if present. Rows
// with a bad timestamp or an out-of-range number are dropped with a warning.
func LoadCSV(path string) ([]signal.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open draw file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read draw file: %w", err)
	}

	draws := make([]signal.Event, 0, len(rows))
	for i, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			if i == 0 {
				continue // header
			}
			log.Warn().Int("row", i).Str("ts", row[0]).Msg("skipping row with bad timestamp")
			continue
		}
		number, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil || number < 0 || number > 9 {
			log.Warn().Int("row", i).Str("number", row[1]).Msg("skipping row with bad number")
			continue
		}
		draws = append(draws, signal.Event{
			Category:  signal.CategoryOf(number),
			Magnitude: number,
			Ts:        ts,
		})
	}

	sortDraws(draws)
	log.Info().Int("draws", len(draws)).Str("file", path).Msg("draw data loaded")
	return draws, nil
}

type jsonDraw struct {
	Ts     time.Time `json:"ts"`
	Number int       `json:"number"`
}

// LoadJSON parses a JSON array of {ts, number} objects.
func LoadJSON(path string) ([]signal.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open draw file: %w", err)
	}

	var rows []jsonDraw
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse draw file: %w", err)
	}

	draws := make([]signal.Event, 0, len(rows))
	for i, row := range rows {
		if row.Number < 0 || row.Number > 9 {
			log.Warn().Int("row", i).Int("number", row.Number).Msg("skipping draw with bad number")
			continue
		}
		draws = append(draws, signal.Event{
			Category:  signal.CategoryOf(row.Number),
			Magnitude: row.Number,
			Ts:        row.Ts,
		})
	}

	sortDraws(draws)
	log.Info().Int("draws", len(draws)).Str("file", path).Msg("draw data loaded")
	return draws, nil
}

func sortDraws(draws []signal.Event) {
	sort.Slice(draws, func(i, j int) bool {
		return draws[i].Ts.Before(draws[j].Ts)
	})
}
