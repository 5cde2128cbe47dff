package domain

import (
	"github.com/shopspring/decimal"
)

// ChartMeta 海外行情图表的元数据
type ChartMeta struct {
	Symbol              string
	Currency            string
	ExchangeName        string
	FullExchangeName    string
	LongName            string
	ShortName           string
	RegularMarketPrice  *float64
	PreviousClose       *float64
	RegularMarketVolume *float64
	MarketCap           *float64
}

// QuoteSeries 按时间戳对齐的 OHLCV 序列，缺失值为 nil
type QuoteSeries struct {
	Open   []*float64
	High   []*float64
	Low    []*float64
	Close  []*float64
	Volume []*float64
}

// ChartResult 海外行情图表结果
type ChartResult struct {
	Meta       *ChartMeta
	Timestamps []int64
	// 取自 indicators.quote[0]，缺失时为 nil
	Quote *QuoteSeries
}

// PriceQuote 对外输出的海外股票报价
type PriceQuote struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"changePercent"`
	PreviousClose float64  `json:"previousClose"`
	Volume        int64    `json:"volume"`
	MarketCap     *float64 `json:"marketCap,omitempty"`
	Currency      string   `json:"currency"`
	Exchange      string   `json:"exchange,omitempty"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	IsKorean      bool     `json:"isKorean"`
}

const defaultCurrency = "USD"

var hundred = decimal.NewFromInt(100)

// DeriveQuote 由图表元数据与日内序列推导报价
// 缺失或为 0 的字段按顺序回退：现价 ← 前收盘，前收盘 ← 现价
func DeriveQuote(symbol string, meta *ChartMeta, series *QuoteSeries) *PriceQuote {
	if meta == nil {
		meta = &ChartMeta{}
	}
	if series == nil {
		series = &QuoteSeries{}
	}

	price := orZero(meta.RegularMarketPrice)
	if price.IsZero() {
		price = orZero(meta.PreviousClose)
	}
	prevClose := orZero(meta.PreviousClose)
	if prevClose.IsZero() {
		prevClose = price
	}

	change := price.Sub(prevClose)
	changePercent := decimal.Zero
	if !prevClose.IsZero() {
		changePercent = change.Div(prevClose).Mul(hundred)
	}

	q := &PriceQuote{
		Symbol:        firstNonEmpty(meta.Symbol, symbol),
		Name:          firstNonEmpty(meta.LongName, meta.ShortName, symbol),
		Price:         price.InexactFloat64(),
		Change:        change.InexactFloat64(),
		ChangePercent: changePercent.InexactFloat64(),
		PreviousClose: prevClose.InexactFloat64(),
		MarketCap:     meta.MarketCap,
		Currency:      firstNonEmpty(meta.Currency, defaultCurrency),
		Exchange:      firstNonEmpty(meta.ExchangeName, meta.FullExchangeName),
		Open:          lastOr(series.Open, price).InexactFloat64(),
		High:          lastOr(series.High, price).InexactFloat64(),
		Low:           lastOr(series.Low, price).InexactFloat64(),
	}
	if meta.RegularMarketVolume != nil {
		q.Volume = int64(*meta.RegularMarketVolume)
	}
	return q
}

func orZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

// lastOr 取序列最后一个值，序列为空或最后一个值缺失时返回 fallback
func lastOr(vals []*float64, fallback decimal.Decimal) decimal.Decimal {
	if len(vals) == 0 || vals[len(vals)-1] == nil {
		return fallback
	}
	return decimal.NewFromFloat(*vals[len(vals)-1])
}
