package domain

import "unicode/utf8"

// SearchCandidate 远程自动补全返回的候选
type SearchCandidate struct {
	Symbol           string
	QuoteType        string
	TypeDisp         string
	Exchange         string
	FullExchangeName string
	ShortName        string
	LongName         string
}

// 候选代码的最大长度，更长的多为期权、基金份额等
const maxCandidateSymbolLen = 6

func (c SearchCandidate) preferred() bool {
	if c.Symbol == "" || utf8.RuneCountInString(c.Symbol) > maxCandidateSymbolLen {
		return false
	}
	return c.QuoteType == "EQUITY" || c.QuoteType == "ETF" || c.TypeDisp == "Equity"
}

// SelectCandidate 优先取第一个股票/ETF 类型的短代码候选，否则取第一个候选
// 选中的候选代码为空时返回 nil
func SelectCandidate(candidates []SearchCandidate) *ResolvedAlias {
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, c := range candidates {
		if c.preferred() {
			best = c
			break
		}
	}
	if best.Symbol == "" {
		return nil
	}

	return &ResolvedAlias{
		Ticker:      best.Symbol,
		Exchange:    firstNonEmpty(best.Exchange, best.FullExchangeName),
		EnglishName: firstNonEmpty(best.ShortName, best.LongName, best.Symbol),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
