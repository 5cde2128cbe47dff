package yahoo

import "github.com/wyfcoding/stockrouter/internal/stock/domain"

// chartResponse /v8/finance/chart 响应
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       *chartMeta `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators struct {
		Quote []quoteSeries `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol              string   `json:"symbol"`
	Currency            string   `json:"currency"`
	ExchangeName        string   `json:"exchangeName"`
	FullExchangeName    string   `json:"fullExchangeName"`
	LongName            string   `json:"longName"`
	ShortName           string   `json:"shortName"`
	RegularMarketPrice  *float64 `json:"regularMarketPrice"`
	PreviousClose       *float64 `json:"previousClose"`
	RegularMarketVolume *float64 `json:"regularMarketVolume"`
	MarketCap           *float64 `json:"marketCap"`
}

// 序列中的 null 解码为 nil
type quoteSeries struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func (r chartResult) toDomain() *domain.ChartResult {
	out := &domain.ChartResult{Timestamps: r.Timestamp}
	if m := r.Meta; m != nil {
		out.Meta = &domain.ChartMeta{
			Symbol:              m.Symbol,
			Currency:            m.Currency,
			ExchangeName:        m.ExchangeName,
			FullExchangeName:    m.FullExchangeName,
			LongName:            m.LongName,
			ShortName:           m.ShortName,
			RegularMarketPrice:  m.RegularMarketPrice,
			PreviousClose:       m.PreviousClose,
			RegularMarketVolume: m.RegularMarketVolume,
			MarketCap:           m.MarketCap,
		}
	}
	if len(r.Indicators.Quote) > 0 {
		q := r.Indicators.Quote[0]
		out.Quote = &domain.QuoteSeries{
			Open:   q.Open,
			High:   q.High,
			Low:    q.Low,
			Close:  q.Close,
			Volume: q.Volume,
		}
	}
	return out
}

// searchResponse /v1/finance/search 响应
type searchResponse struct {
	Quotes []struct {
		Symbol           string `json:"symbol"`
		QuoteType        string `json:"quoteType"`
		TypeDisp         string `json:"typeDisp"`
		Exchange         string `json:"exchange"`
		FullExchangeName string `json:"fullExchangeName"`
		ShortName        string `json:"shortname"`
		LongName         string `json:"longname"`
	} `json:"quotes"`
}
