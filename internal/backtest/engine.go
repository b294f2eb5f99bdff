package backtest

import (
	"time"

	"CycleSentinel/internal/model"
)

// Run simulates the long/flat strategy over the aligned inputs with a
// one-day execution lag: the position held through day t is decided by
// the signals observed at day t-1. Identical inputs always produce an
// identical result.
func Run(in Inputs, params model.BacktestParams, cfg Config) (*model.BacktestResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	sig := BuildSignals(in, params, cfg)
	n := len(in.Dates)

	position := make([]int, n)
	for t := 1; t < n; t++ {
		switch {
		case position[t-1] == 0 && sig.Entry[t-1]:
			position[t] = 1
		case position[t-1] == 1 && sig.Exit[t-1]:
			position[t] = 0
		default:
			position[t] = position[t-1]
		}
	}

	returns := make([]float64, n)
	for t := 1; t < n; t++ {
		if in.BTC[t-1] != 0 {
			returns[t] = in.BTC[t]/in.BTC[t-1] - 1
		}
	}
	stratReturns := make([]float64, n)
	for t := range stratReturns {
		stratReturns[t] = returns[t] * float64(position[t])
	}

	equity := cumulate(stratReturns)
	buyHold := cumulate(returns)

	var entries, exits []time.Time
	for t := 1; t < n; t++ {
		switch {
		case position[t-1] == 0 && position[t] == 1:
			entries = append(entries, in.Dates[t])
		case position[t-1] == 1 && position[t] == 0:
			exits = append(exits, in.Dates[t])
		}
	}

	return &model.BacktestResult{
		Params:     params,
		Dates:      in.Dates,
		Position:   position,
		Equity:     equity,
		BuyHold:    buyHold,
		Entries:    entries,
		Exits:      exits,
		Conditions: sig.Counts(),
		Metrics:    Metrics(equity, buyHold, stratReturns, position),
	}, nil
}

// cumulate compounds daily returns into an equity curve starting at 1.
func cumulate(returns []float64) []float64 {
	out := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		acc *= 1 + r
		out[i] = acc
	}
	return out
}
