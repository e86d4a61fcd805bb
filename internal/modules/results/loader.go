package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
)

// Loader parses lottery data files. Accepted shapes:
//
//	[{"date": "2024-01-01", "result": {...}}, ...]
//	{"results": {...date-keyed...}} or {"results": [...records...]}
//	{"2024-01-01": {...}, ...}
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a loader.
func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{log: log.With().Str("component", "results_loader").Logger()}
}

// LoadFile reads and parses path into a Store.
func (l *Loader) LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	parsed, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return NewStore(parsed)
}

// Parse decodes any accepted shape into date-ordered results. Records with
// unparseable dates are skipped and duplicate dates keep the first occurrence;
// both are logged as warnings.
func (l *Loader) Parse(data []byte) ([]domain.DailyResult, error) {
	var root any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw []rawRecord
	switch v := root.(type) {
	case []any:
		raw = recordsFromArray(v)
	case map[string]any:
		if inner, ok := v["results"]; ok {
			switch r := inner.(type) {
			case []any:
				raw = recordsFromArray(r)
			case map[string]any:
				raw = recordsFromDateMap(r)
			default:
				return nil, fmt.Errorf("unsupported \"results\" value of type %T", inner)
			}
		} else {
			raw = recordsFromDateMap(v)
		}
	default:
		return nil, fmt.Errorf("unsupported top-level JSON value of type %T", root)
	}

	seen := make(map[string]bool, len(raw))
	out := make([]domain.DailyResult, 0, len(raw))
	for _, rec := range raw {
		date, err := domain.ParseDate(rec.date)
		if err != nil {
			l.log.Warn().Str("date", rec.date).Msg("Skipping record with unparseable date")
			continue
		}
		key := date.Format(domain.DateLayout)
		if seen[key] {
			l.log.Warn().Str("date", key).Msg("Dropping duplicate date")
			continue
		}
		seen[key] = true
		out = append(out, domain.DailyResult{Date: date, Draws: normalizeDraws(rec.draws)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type rawRecord struct {
	date  string
	draws map[string]any
}

func recordsFromArray(items []any) []rawRecord {
	out := make([]rawRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		date, _ := obj["date"].(string)
		draws, ok := obj["result"].(map[string]any)
		if !ok {
			// Flat record: every field except the date is a draw
			draws = make(map[string]any, len(obj))
			for k, v := range obj {
				if k != "date" {
					draws[k] = v
				}
			}
		}
		out = append(out, rawRecord{date: date, draws: draws})
	}
	return out
}

func recordsFromDateMap(m map[string]any) []rawRecord {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]rawRecord, 0, len(m))
	for _, k := range keys {
		draws, ok := m[k].(map[string]any)
		if !ok {
			draws = map[string]any{}
		}
		out = append(out, rawRecord{date: k, draws: draws})
	}
	return out
}

// normalizeDraws converts numbers to strings and lists to []string.
func normalizeDraws(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case []any:
			list := make([]string, 0, len(val))
			for _, item := range val {
				list = append(list, drawStrings(item)...)
			}
			out[k] = list
		case json.Number:
			out[k] = val.String()
		default:
			out[k] = v
		}
	}
	return out
}
