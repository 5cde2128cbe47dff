package domain

import "time"

// DefaultChartPeriod 未指定周期时使用一个月
const DefaultChartPeriod = "1m"

// ChartPoint 单日 OHLCV
type ChartPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// ChartSeries 图表接口的响应体
type ChartSeries struct {
	Symbol string       `json:"symbol"`
	Period string       `json:"period"`
	Data   []ChartPoint `json:"data"`
}

// ChartRange 把对外周期（1m/3m/6m/1y）映射为行情源的 range 参数，未知周期按一年处理
func ChartRange(period string) string {
	switch period {
	case "1m":
		return "1mo"
	case "3m":
		return "3mo"
	case "6m":
		return "6mo"
	default:
		return "1y"
	}
}

// BuildSeries 按时间戳展开序列；开盘或收盘缺失的点跳过，日期取 UTC
func BuildSeries(symbol, period string, result *ChartResult) *ChartSeries {
	out := &ChartSeries{Symbol: symbol, Period: period, Data: make([]ChartPoint, 0, len(result.Timestamps))}
	q := result.Quote
	if q == nil {
		return out
	}

	for i, ts := range result.Timestamps {
		open, closePrice := at(q.Open, i), at(q.Close, i)
		if open == nil || closePrice == nil {
			continue
		}
		out.Data = append(out.Data, ChartPoint{
			Date:   time.Unix(ts, 0).UTC().Format(time.DateOnly),
			Open:   *open,
			High:   valueOrZero(at(q.High, i)),
			Low:    valueOrZero(at(q.Low, i)),
			Close:  *closePrice,
			Volume: int64(valueOrZero(at(q.Volume, i))),
		})
	}
	return out
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
