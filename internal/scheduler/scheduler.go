package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"CycleSentinel/internal/calculator"
	"CycleSentinel/internal/collector"
	"CycleSentinel/internal/config"
	"CycleSentinel/internal/metrics"
	"CycleSentinel/internal/model"
	"CycleSentinel/internal/notifier"
	"CycleSentinel/internal/recorder"
	"CycleSentinel/internal/strategy"
)

// Scheduler runs the refresh cycle on cron triggers and serves the
// Telegram commands. A mutex serializes cycles across every trigger, so
// a manual refresh can never interleave with a scheduled one.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Recorder  recorder.Recorder
	Notifier  notifier.Notifier
	Metrics   *metrics.Metrics
	Cfg       *config.Config
	Ctx       context.Context
	Now       func() time.Time

	mu sync.Mutex
}

// NewScheduler creates a new Scheduler running in the configured
// timezone.
func NewScheduler(ctx context.Context, cfg *config.Config, col *collector.Collector, rec recorder.Recorder, n notifier.Notifier, m *metrics.Metrics) *Scheduler {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Printf("[WARN] invalid timezone %q, using UTC", cfg.Schedule.Timezone)
		loc = time.UTC
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Collector: col,
		Recorder:  rec,
		Notifier:  n,
		Metrics:   m,
		Cfg:       cfg,
		Ctx:       ctx,
	}
}

// RegisterAll registers the daily and interval refresh triggers.
func (s *Scheduler) RegisterAll() error {
	if _, err := s.Cron.AddFunc(s.Cfg.Schedule.DailyCron, s.runScheduled); err != nil {
		return fmt.Errorf("register daily refresh: %w", err)
	}
	if _, err := s.Cron.AddFunc(s.Cfg.Schedule.IntervalCron, s.runScheduled); err != nil {
		return fmt.Errorf("register interval refresh: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunRefresh executes a full refresh cycle, waiting for any cycle already
// in flight to finish first. Telegram commands use this path.
func (s *Scheduler) RunRefresh(ctx context.Context) []model.RefreshResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// TryRunRefresh executes a refresh cycle unless one is already in flight.
// The HTTP API uses this path and reports busy instead of queueing.
func (s *Scheduler) TryRunRefresh(ctx context.Context) ([]model.RefreshResult, bool) {
	if !s.mu.TryLock() {
		return nil, false
	}
	defer s.mu.Unlock()
	return s.refreshLocked(ctx), true
}

func (s *Scheduler) runScheduled() {
	if !s.mu.TryLock() {
		log.Println("[WARN] refresh already running, skipping scheduled trigger")
		return
	}
	defer s.mu.Unlock()
	s.refreshLocked(s.Ctx)
}

type update struct {
	name string
	fn   func(context.Context, time.Time) (model.Status, model.Provenance, error)
}

// refreshLocked updates the five indicators in dashboard order, persists
// the aggregate summary, and sends alerts. One failing indicator never
// stops the others: its stored status keeps representing it, tagged as
// cached, and only an empty store degrades it to unknown.
func (s *Scheduler) refreshLocked(ctx context.Context) []model.RefreshResult {
	began := time.Now()
	today := midnightUTC(s.now())
	log.Println("[INFO] refresh cycle started")

	updates := []update{
		{model.KeyIndex, s.updateIndex},
		{model.KeyPiCycle, s.updatePiCycle},
		{model.KeySentiment, s.updateSentiment},
		{model.KeyRank, s.updateRank},
		{model.KeyHalving, s.updateCycle},
	}

	statuses := make([]model.IndicatorStatus, 0, len(updates))
	results := make([]model.RefreshResult, 0, len(updates))
	for _, u := range updates {
		status, prov, err := u.fn(ctx, today)
		if err != nil {
			log.Printf("[ERROR] update %s: %v", u.name, err)
			status, prov = s.storedStatus(u.name)
			results = append(results, model.RefreshResult{Indicator: u.name, Provenance: prov, Err: err.Error()})
		} else {
			results = append(results, model.RefreshResult{Indicator: u.name, OK: true, Provenance: prov})
		}
		s.Metrics.IndicatorUpdate(u.name, err == nil)
		statuses = append(statuses, model.IndicatorStatus{Indicator: u.name, Status: status, Provenance: prov})
	}

	prev := s.previousSummary()
	summary := strategy.Aggregate(statuses)
	if payload, err := json.Marshal(summary); err != nil {
		log.Printf("[ERROR] marshal summary: %v", err)
	} else if err := s.Recorder.PutLatest(model.KeySummary, today, payload); err != nil {
		log.Printf("[ERROR] persist summary: %v", err)
	}

	if prev != nil && prev.Overall != summary.Overall {
		s.trySend(notifier.FormatReadChange(prev.Overall, summary.Overall))
	}
	failed := lo.CountBy(results, func(r model.RefreshResult) bool { return !r.OK })
	if failed >= 2 {
		s.trySend(notifier.FormatFailureAlert(results))
	}

	s.Metrics.RefreshRun(failed == 0)
	s.Metrics.SetLastRefresh(time.Now())
	log.Printf("[INFO] refresh cycle done in %v (%d/%d ok)",
		time.Since(began).Round(time.Millisecond), len(results)-failed, len(results))
	return results
}

func (s *Scheduler) updateIndex(ctx context.Context, today time.Time) (model.Status, model.Provenance, error) {
	fetchStart := time.Now()
	prices, err := s.Collector.FetchPriceSet(ctx, s.Cfg.Market.BTCSymbol, s.Cfg.Equities(), s.Cfg.HistoryStartTime(), today)
	s.Metrics.ObserveFetch(s.Collector.Prices.Name(), time.Since(fetchStart))
	if err != nil {
		return model.StatusUnknown, "", fmt.Errorf("fetch prices: %w", err)
	}

	series, err := calculator.BuildIndex(prices, calculator.IndexConfig{
		Weights:       s.Cfg.Market.Weights,
		BTCSymbol:     s.Cfg.Market.BTCSymbol,
		AnchorSymbol:  s.Cfg.Market.AnchorEquity,
		SmoothingDays: s.Cfg.Market.SmoothingDays,
		MAWindows:     s.Cfg.Market.MAWindows,
	})
	if err != nil {
		return model.StatusUnknown, "", err
	}
	date, value := series.Latest()
	if math.IsNaN(value) {
		return model.StatusUnknown, "", fmt.Errorf("latest index value undefined: %w", calculator.ErrInsufficientHistory)
	}

	status := strategy.ClassifyIndex(value,
		last(series.SMA[s.Cfg.Market.IndexBullMA]),
		last(series.SMA[s.Cfg.Market.IndexBearMA]))
	snap := model.IndexSnapshot{
		Schema: model.SchemaVersion,
		Date:   date,
		Value:  value,
		SMA:    latestByWindow(series.SMA),
		EMA:    latestByWindow(series.EMA),
		Status: status,
		Chart: model.IndexChart{
			Dates:  series.Dates,
			Values: model.OptSeries(series.Smoothed),
			SMA:    seriesByWindow(series.SMA),
			EMA:    seriesByWindow(series.EMA),
		},
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.persist(model.KeyIndex, date, snap, value); err != nil {
		return model.StatusUnknown, "", err
	}
	return status, model.ProvenanceLive, nil
}

func (s *Scheduler) updatePiCycle(ctx context.Context, today time.Time) (model.Status, model.Provenance, error) {
	fetchStart := time.Now()
	series, err := s.Collector.FetchBTC(ctx, s.Cfg.Market.BTCSymbol, s.Cfg.HistoryStartTime(), today)
	s.Metrics.ObserveFetch(s.Collector.Prices.Name(), time.Since(fetchStart))
	if err != nil {
		return model.StatusUnknown, "", fmt.Errorf("fetch %s: %w", s.Cfg.Market.BTCSymbol, err)
	}

	pi, err := calculator.BuildPiCycle(series)
	if err != nil {
		return model.StatusUnknown, "", err
	}
	date, ratio, sma111, sma350x2 := pi.Latest()
	status := strategy.ClassifyPiCycle(ratio, s.thresholds())

	tail := pi.Tail(s.Cfg.PiCycle.ChartYears * 365)
	snap := model.PiCycleSnapshot{
		Schema:     model.SchemaVersion,
		Date:       date,
		Ratio:      ratio,
		SMA111:     sma111,
		SMA350x2:   sma350x2,
		Status:     status,
		Crossovers: pi.Crossovers,
		Chart: model.PiCycleChart{
			Dates:    tail.Dates,
			Price:    tail.Price,
			SMA111:   model.OptSeries(tail.SMA111),
			SMA350x2: model.OptSeries(tail.SMA350x2),
			Ratio:    model.OptSeries(tail.Ratio),
		},
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.persist(model.KeyPiCycle, date, snap, ratio); err != nil {
		return model.StatusUnknown, "", err
	}
	return status, model.ProvenanceLive, nil
}

func (s *Scheduler) updateSentiment(ctx context.Context, today time.Time) (model.Status, model.Provenance, error) {
	fetchStart := time.Now()
	score, history, err := s.Collector.Sentiment.Fetch(ctx)
	s.Metrics.ObserveFetch(s.Collector.Sentiment.Fetcher.Name(), time.Since(fetchStart))
	if err != nil {
		return model.StatusUnknown, "", err
	}

	status := strategy.ClassifySentiment(score.Score, s.thresholds())
	if len(history) > 0 {
		s.backfillSentiment(history)
	}
	date := midnightUTC(score.Date)
	snap := model.SentimentSnapshot{
		Schema:     model.SchemaVersion,
		Date:       date,
		Score:      score.Score,
		Provenance: score.Provenance,
		Status:     status,
		History:    history,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.persist(model.KeySentiment, date, snap, score.Score); err != nil {
		return model.StatusUnknown, "", err
	}
	return status, score.Provenance, nil
}

// backfillSentiment seeds the history table from the published series the
// first time the live source answers. Later cycles keep appending one
// point per day, so an already seeded table is left alone.
func (s *Scheduler) backfillSentiment(points []model.HistoryPoint) {
	existing, err := s.Recorder.GetHistory(model.KeySentiment, time.Time{})
	if err != nil || len(existing) > 0 {
		return
	}
	for _, pt := range points {
		if err := s.Recorder.AppendHistory(model.KeySentiment, pt.Date, pt.Value); err != nil {
			log.Printf("[WARN] backfill sentiment history: %v", err)
			return
		}
	}
	log.Printf("[INFO] backfilled %d sentiment history points", len(points))
}

func (s *Scheduler) updateRank(ctx context.Context, today time.Time) (model.Status, model.Provenance, error) {
	fetchStart := time.Now()
	rank, err := s.Collector.Rank.FetchRank(ctx)
	s.Metrics.ObserveFetch(s.Collector.Rank.Name(), time.Since(fetchStart))
	if err != nil {
		return model.StatusUnknown, "", err
	}

	status := strategy.ClassifyRank(&rank, s.thresholds())
	snap := model.RankSnapshot{
		Schema:    model.SchemaVersion,
		Date:      today,
		Rank:      rank,
		Store:     "App Store",
		Chart:     "US Top Free",
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.persist(model.KeyRank, today, snap, float64(rank.Ordinal(s.Cfg.AppStore.TrackedRange))); err != nil {
		return model.StatusUnknown, "", err
	}
	return status, model.ProvenanceLive, nil
}

func (s *Scheduler) updateCycle(ctx context.Context, today time.Time) (model.Status, model.Provenance, error) {
	halvings, err := s.Cfg.HalvingTimes()
	if err != nil {
		return model.StatusUnknown, "", err
	}
	pos, err := calculator.CyclePositionAt(today, halvings, s.Cfg.Halving.ProjectedTopDays)
	if err != nil {
		return model.StatusUnknown, "", err
	}
	status := strategy.ClassifyCycle(pos.PercentComplete, s.thresholds())

	// The comparison curves need prices, but the position itself is pure
	// calendar arithmetic. Keep the indicator alive when the fetch fails.
	var curves []model.CycleCurve
	if series, err := s.Collector.FetchBTC(ctx, s.Cfg.Market.BTCSymbol, s.Cfg.HistoryStartTime(), today); err != nil {
		log.Printf("[WARN] cycle curves unavailable: %v", err)
	} else {
		curves = calculator.CycleCurves(series, halvings)
	}

	snap := model.CycleSnapshot{
		Schema:    model.SchemaVersion,
		Position:  pos,
		Status:    status,
		Curves:    curves,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.persist(model.KeyHalving, today, snap, pos.PercentComplete); err != nil {
		return model.StatusUnknown, "", err
	}
	return status, model.ProvenanceLive, nil
}

// HandleCommand serves the Telegram bot commands.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status", "状态":
		return s.statusReply()
	case "/cycle", "周期":
		return s.cycleReply()
	case "/refresh", "刷新":
		return notifier.FormatRefreshResults(s.RunRefresh(s.Ctx))
	default:
		return "可用命令:\n• /status 查看当前信号\n• /cycle 查看减半周期\n• /refresh 手动刷新"
	}
}

func (s *Scheduler) statusReply() string {
	_, payload, err := s.Recorder.GetLatest(model.KeySummary)
	if err != nil {
		return "暂无信号数据，请先执行 /refresh"
	}
	summary, err := model.DecodeSnapshot[model.SignalSummary](payload)
	if err != nil {
		log.Printf("[ERROR] decode stored summary: %v", err)
		return "信号数据损坏，请重新刷新"
	}
	return notifier.FormatSummary(summary)
}

func (s *Scheduler) cycleReply() string {
	halvings, err := s.Cfg.HalvingTimes()
	if err != nil {
		return "减半日期配置错误: " + err.Error()
	}
	pos, err := calculator.CyclePositionAt(midnightUTC(s.now()), halvings, s.Cfg.Halving.ProjectedTopDays)
	if err != nil {
		return "周期位置不可用: " + err.Error()
	}
	return notifier.FormatCycle(&pos)
}

// statusProbe reads just the classified status out of any persisted
// indicator snapshot.
type statusProbe struct {
	Status model.Status `json:"status"`
}

func (s *Scheduler) storedStatus(name string) (model.Status, model.Provenance) {
	_, payload, err := s.Recorder.GetLatest(name)
	if err != nil {
		return model.StatusUnknown, ""
	}
	probe, err := model.DecodeSnapshot[statusProbe](payload)
	if err != nil {
		log.Printf("[WARN] stored %s snapshot unreadable: %v", name, err)
		return model.StatusUnknown, ""
	}
	return probe.Status, model.ProvenanceCached
}

func (s *Scheduler) previousSummary() *model.SignalSummary {
	_, payload, err := s.Recorder.GetLatest(model.KeySummary)
	if err != nil {
		return nil
	}
	summary, err := model.DecodeSnapshot[model.SignalSummary](payload)
	if err != nil {
		log.Printf("[WARN] previous summary unreadable: %v", err)
		return nil
	}
	return summary
}

func (s *Scheduler) persist(name string, date time.Time, snap any, historyValue float64) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", name, err)
	}
	if err := s.Recorder.PutLatest(name, date, payload); err != nil {
		return fmt.Errorf("store %s snapshot: %w", name, err)
	}
	if err := s.Recorder.AppendHistory(name, date, historyValue); err != nil {
		return fmt.Errorf("append %s history: %w", name, err)
	}
	return nil
}

func (s *Scheduler) thresholds() strategy.Thresholds {
	return strategy.Thresholds{
		SentimentGreed: s.Cfg.Sentiment.GreedThreshold,
		SentimentFear:  s.Cfg.Sentiment.FearThreshold,
		RankEuphoria:   s.Cfg.AppStore.EuphoriaRank,
		RankGrowing:    s.Cfg.AppStore.GrowingRank,
		PiTop:          s.Cfg.PiCycle.TopRatio,
		PiNormal:       s.Cfg.PiCycle.NormalRatio,
		CycleLate:      s.Cfg.Halving.LateFraction,
		CycleMid:       s.Cfg.Halving.MidFraction,
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func latestByWindow(byWindow map[int][]float64) map[int]*float64 {
	out := make(map[int]*float64, len(byWindow))
	for w, values := range byWindow {
		out[w] = model.OptFloat(last(values))
	}
	return out
}

func seriesByWindow(byWindow map[int][]float64) map[int][]*float64 {
	out := make(map[int][]*float64, len(byWindow))
	for w, values := range byWindow {
		out[w] = model.OptSeries(values)
	}
	return out
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
