package model

import "time"

// BacktestParams controls one strategy simulation. Zero fields take the
// configured defaults before the run starts.
type BacktestParams struct {
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	StrictEntry         bool      `json:"strict_entry"`
	StrictExit          bool      `json:"strict_exit"`
	LookbackWindow      int       `json:"lookback_window"`
	UnderperfPercentile float64   `json:"underperf_percentile"`
}

// ConditionCounts reports how many days each signal condition fired.
type ConditionCounts struct {
	SentimentLow  int `json:"sentiment_low"`
	RankCold      int `json:"rank_cold"`
	Underperf     int `json:"underperformance"`
	AccumWindow   int `json:"accumulation_window"`
	PiCrossover   int `json:"pi_crossover"`
	SentimentHigh int `json:"sentiment_high"`
	RankHot       int `json:"rank_hot"`
	DistWindow    int `json:"distribution_window"`
}

// BacktestMetrics summarizes a simulated equity curve against buy-and-hold.
type BacktestMetrics struct {
	TotalReturn        float64  `json:"total_return"`
	BuyHoldReturn      float64  `json:"buy_hold_return"`
	MaxDrawdown        float64  `json:"max_drawdown"`
	BuyHoldMaxDrawdown float64  `json:"buy_hold_max_drawdown"`
	Sharpe             *float64 `json:"sharpe"`
	TimeInMarket       float64  `json:"time_in_market"`
}

// BacktestResult is the full output of one simulation run.
type BacktestResult struct {
	Params     BacktestParams  `json:"params"`
	Dates      []time.Time     `json:"dates"`
	Position   []int           `json:"position"`
	Equity     []float64       `json:"equity"`
	BuyHold    []float64       `json:"buy_hold"`
	Entries    []time.Time     `json:"entries"`
	Exits      []time.Time     `json:"exits"`
	Conditions ConditionCounts `json:"conditions"`
	Metrics    BacktestMetrics `json:"metrics"`
}
