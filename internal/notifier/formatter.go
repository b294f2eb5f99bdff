package notifier

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"CycleSentinel/internal/model"
)

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityBullish:
		return "🟢"
	case model.SeverityNeutral:
		return "🟡"
	case model.SeverityBearish:
		return "🔴"
	default:
		return "⚪"
	}
}

func indicatorTitle(key string) string {
	switch key {
	case model.KeyIndex:
		return "MAG7-BTC指数"
	case model.KeyPiCycle:
		return "Pi周期"
	case model.KeySentiment:
		return "CBBI情绪"
	case model.KeyRank:
		return "Coinbase排名"
	case model.KeyHalving:
		return "减半周期"
	default:
		return key
	}
}

func provenanceNote(p model.Provenance) string {
	switch p {
	case model.ProvenanceCached:
		return " (缓存)"
	case model.ProvenanceApproximated:
		return " (近似)"
	default:
		return ""
	}
}

// FormatSummary formats the aggregate signal summary for Telegram.
func FormatSummary(s *model.SignalSummary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>市场周期概览</b> | %s\n\n", s.UpdatedAt.Format("2006-01-02")))
	for _, st := range s.Statuses {
		b.WriteString(fmt.Sprintf("%s %s: %s%s\n",
			severityIcon(st.Status.Severity), indicatorTitle(st.Indicator),
			st.Status.Label, provenanceNote(st.Provenance)))
	}
	b.WriteString(fmt.Sprintf("\n综合读数: <b>%s</b>\n", s.Overall))
	b.WriteString(fmt.Sprintf("看多 %d | 中性 %d | 看空 %d | 未知 %d\n",
		s.Tally.Bullish, s.Tally.Neutral, s.Tally.Bearish, s.Tally.Unknown))
	return b.String()
}

// FormatCycle formats the current halving-cycle position.
func FormatCycle(pos *model.CyclePosition) string {
	var b strings.Builder

	b.WriteString("⛏ <b>减半周期位置</b>\n\n")
	b.WriteString(fmt.Sprintf("上次减半: %s\n", pos.LastHalving.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("距今: %d 天\n", pos.DaysSinceHalving))
	if pos.NextHalvingEstimated {
		b.WriteString(fmt.Sprintf("下次减半(预估): %s\n", pos.NextHalving.Format("2006-01-02")))
	} else {
		b.WriteString(fmt.Sprintf("下次减半: %s\n", pos.NextHalving.Format("2006-01-02")))
	}
	if pos.DaysUntilProjectedTop >= 0 {
		b.WriteString(fmt.Sprintf("预测顶部: %s (剩余 %d 天)\n",
			pos.ProjectedTop.Format("2006-01-02"), pos.DaysUntilProjectedTop))
	} else {
		b.WriteString(fmt.Sprintf("预测顶部: %s (已超出 %d 天)\n",
			pos.ProjectedTop.Format("2006-01-02"), -pos.DaysUntilProjectedTop))
	}
	b.WriteString(fmt.Sprintf("周期进度: %.1f%%\n", pos.PercentComplete*100))
	return b.String()
}

// FormatRefreshResults formats the per-indicator outcome of one refresh
// cycle.
func FormatRefreshResults(results []model.RefreshResult) string {
	var b strings.Builder

	b.WriteString("🔄 <b>数据刷新结果</b>\n\n")
	for _, r := range results {
		if r.OK {
			b.WriteString(fmt.Sprintf("✅ %s%s\n", indicatorTitle(r.Indicator), provenanceNote(r.Provenance)))
		} else {
			b.WriteString(fmt.Sprintf("❌ %s: %s\n", indicatorTitle(r.Indicator), r.Err))
		}
	}
	ok := lo.CountBy(results, func(r model.RefreshResult) bool { return r.OK })
	b.WriteString(fmt.Sprintf("\n%d/%d 更新成功\n", ok, len(results)))
	return b.String()
}

// FormatReadChange announces a change of the aggregate market read.
func FormatReadChange(prev, cur model.OverallRead) string {
	var b strings.Builder
	b.WriteString("🚨 <b>市场信号变化</b>\n\n")
	b.WriteString(fmt.Sprintf("综合读数: %s → %s\n", prev, cur))
	return b.String()
}

// FormatFailureAlert warns that a refresh cycle lost multiple sources.
func FormatFailureAlert(results []model.RefreshResult) string {
	failed := lo.Filter(results, func(r model.RefreshResult, _ int) bool { return !r.OK })

	var b strings.Builder
	b.WriteString("⚠️ <b>数据源异常</b>\n\n")
	b.WriteString(fmt.Sprintf("本轮刷新 %d/%d 个指标失败:\n", len(failed), len(results)))
	for _, r := range failed {
		b.WriteString(fmt.Sprintf("❌ %s: %s\n", indicatorTitle(r.Indicator), r.Err))
	}
	return b.String()
}
