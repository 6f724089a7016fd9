package engine

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rxtech-lab/signal-backtest/internal/types"
)

// Field aliases seen across signal producers. The first key present wins.
var (
	timeKeys  = []string{"time", "timestamp", "t"}
	typeKeys  = []string{"signal", "action", "type"}
	priceKeys = []string{"price"}
)

// NormalizeSignals converts heterogeneous raw signal records into canonical
// signals sorted ascending by time. Malformed records are not dropped: they
// come back with Valid=false so the converter can apply one uniform skip
// policy and report them.
func NormalizeSignals(raw []types.RawSignal) []types.Signal {
	signals := make([]types.Signal, 0, len(raw))

	for _, record := range raw {
		signal := types.Signal{
			Valid: true,
			Raw:   record,
		}

		ts, ok := extractTime(record)
		if !ok {
			signal.Valid = false
		}

		signal.Time = ts

		name, ok := extractString(record, typeKeys)
		if !ok {
			signal.Valid = false
		}

		signal.Type = types.SignalType(strings.ToUpper(strings.TrimSpace(name)))

		price, ok := extractFloat(record, priceKeys)
		if !ok {
			signal.Valid = false
		}

		signal.Price = price

		signals = append(signals, signal)
	}

	// Stable so records sharing a timestamp keep their arrival order.
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Time.Before(signals[j].Time)
	})

	return signals
}

// extractTime reads the first present time alias. Accepts time.Time values,
// RFC3339 strings and epoch milliseconds as number, string or json.Number.
func extractTime(record types.RawSignal) (time.Time, bool) {
	for _, key := range timeKeys {
		value, exists := record[key]
		if !exists {
			continue
		}

		switch v := value.(type) {
		case time.Time:
			return v, true
		case float64:
			return time.UnixMilli(int64(v)).UTC(), true
		case int64:
			return time.UnixMilli(v).UTC(), true
		case int:
			return time.UnixMilli(int64(v)).UTC(), true
		case json.Number:
			if ms, err := v.Int64(); err == nil {
				return time.UnixMilli(ms).UTC(), true
			}
		case string:
			if parsed, err := time.Parse(time.RFC3339, v); err == nil {
				return parsed, true
			}
		}

		// Alias present but unusable counts as malformed.
		return time.Time{}, false
	}

	return time.Time{}, false
}

func extractString(record types.RawSignal, keys []string) (string, bool) {
	for _, key := range keys {
		value, exists := record[key]
		if !exists {
			continue
		}

		if s, ok := value.(string); ok && s != "" {
			return s, true
		}

		return "", false
	}

	return "", false
}

func extractFloat(record types.RawSignal, keys []string) (float64, bool) {
	for _, key := range keys {
		value, exists := record[key]
		if !exists {
			continue
		}

		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}

		return 0, false
	}

	return 0, false
}
