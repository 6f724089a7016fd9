package engine

import (
	"sort"
	"time"

	"github.com/rxtech-lab/signal-backtest/internal/types"
)

// ConvertResult is the output of one converter pass.
type ConvertResult struct {
	Trades []types.Trade
	// Skipped holds the raw records behind signals the converter could not
	// consider at all: malformed records and non-positive prices. Recognized
	// no-ops (HOLD, WAIT, redundant same-direction signals) are not skips.
	Skipped []types.RawSignal
}

// ConvertSignalsToTrades replays normalized signals through the
// FLAT/LONG/SHORT state machine and emits completed trades.
//
// First entry, first exit: while a position is open, signals in the same
// direction are no-ops; only a strictly opposite signal closes it. This gives
// an unambiguous 1:1 mapping between signal pairs and trades, so repeated
// same-direction signals cannot double-count exposure. A position still open
// when the stream ends is discarded and produces no trade.
//
// The converter never fails on data: every malformed signal is skipped and
// reported. The optional onProcess callback is invoked once per signal and is
// the only error source; a callback error aborts the replay.
func ConvertSignalsToTrades(signals []types.Signal, bars []types.Bar, feeRate float64, slippageRate float64, onProcess func(current int, total int) error) (ConvertResult, error) {
	trades := make([]types.Trade, 0)
	skipped := make([]types.RawSignal, 0)

	var position *types.Position

	for i, signal := range signals {
		if onProcess != nil {
			if err := onProcess(i+1, len(signals)); err != nil {
				return ConvertResult{}, err
			}
		}

		if !signal.Valid || signal.Price <= 0 {
			skipped = append(skipped, signal.Raw)
			continue
		}

		if !signal.Type.IsActionable() {
			// Recognized or unrecognized noise, stay in the current state.
			continue
		}

		if position == nil {
			position = openPosition(signal, bars, slippageRate)
			continue
		}

		if sameDirection(position.Direction, signal.Type) {
			continue
		}

		trades = append(trades, closePosition(position, signal, bars, feeRate, slippageRate))
		position = nil
	}

	// An open position with no matching exit is discarded on purpose: closing
	// it at the last bar would invent an exit the signal stream never issued.
	return ConvertResult{
		Trades:  trades,
		Skipped: skipped,
	}, nil
}

func openPosition(signal types.Signal, bars []types.Bar, slippageRate float64) *types.Position {
	direction := types.DirectionLong
	entryPrice := signal.Price * (1 + slippageRate)

	if signal.Type == types.SignalTypeSell {
		direction = types.DirectionShort
		entryPrice = signal.Price * (1 - slippageRate)
	}

	return &types.Position{
		Direction:     direction,
		EntryPrice:    entryPrice,
		EntryTime:     signal.Time,
		EntryBarIndex: barIndexAt(bars, signal.Time),
	}
}

func closePosition(position *types.Position, signal types.Signal, bars []types.Bar, feeRate float64, slippageRate float64) types.Trade {
	exitPrice := signal.Price * (1 - slippageRate)
	if position.Direction == types.DirectionShort {
		exitPrice = signal.Price * (1 + slippageRate)
	}

	trade := types.Trade{
		Direction:     position.Direction,
		EntryTime:     position.EntryTime,
		ExitTime:      signal.Time,
		EntryPrice:    position.EntryPrice,
		ExitPrice:     exitPrice,
		EntryBarIndex: position.EntryBarIndex,
		ExitBarIndex:  barIndexAt(bars, signal.Time),
	}

	trade.CalculateEconomics(feeRate)

	return trade
}

func sameDirection(direction types.Direction, signalType types.SignalType) bool {
	if direction == types.DirectionLong {
		return signalType == types.SignalTypeBuy
	}

	return signalType == types.SignalTypeSell
}

// barIndexAt returns the index of the last bar at or before t, or 0 when t
// precedes the whole series.
func barIndexAt(bars []types.Bar, t time.Time) int {
	if len(bars) == 0 {
		return 0
	}

	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Time.After(t)
	})

	if idx == 0 {
		return 0
	}

	return idx - 1
}
