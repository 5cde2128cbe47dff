package domain

import (
	"regexp"
	"strings"
)

// QueryKind 查询分类
type QueryKind int

const (
	// KindAmbiguous 自由文本，需要完整解析流程
	KindAmbiguous QueryKind = iota
	// KindDomestic 韩国股票（6 位数字代码或带 .KS/.KQ 后缀）
	KindDomestic
	// KindForeignTicker 海外股票代码形态（2-5 位大写字母）
	KindForeignTicker
)

func (k QueryKind) String() string {
	switch k {
	case KindDomestic:
		return "domestic"
	case KindForeignTicker:
		return "foreign_ticker"
	default:
		return "ambiguous"
	}
}

var (
	domesticCodePattern  = regexp.MustCompile(`^[0-9]{6}$`)
	foreignTickerPattern = regexp.MustCompile(`^[A-Z]{2,5}$`)
)

// IsDomestic 判断是否为韩国股票代码；后缀匹配区分大小写
func IsDomestic(query string) bool {
	return domesticCodePattern.MatchString(strings.TrimSpace(query)) ||
		strings.Contains(query, ".KS") ||
		strings.Contains(query, ".KQ")
}

// IsForeignTicker 判断去空白并大写后是否为 2-5 位纯字母代码
func IsForeignTicker(query string) bool {
	return foreignTickerPattern.MatchString(strings.ToUpper(strings.TrimSpace(query)))
}

// Classify 按顺序判定：韩国代码 → 海外代码 → 自由文本
func Classify(query string) QueryKind {
	switch {
	case IsDomestic(query):
		return KindDomestic
	case IsForeignTicker(query):
		return KindForeignTicker
	default:
		return KindAmbiguous
	}
}

// FallbackSymbol 最后兜底的代码：原始查询去空白后大写
func FallbackSymbol(query string) string {
	return strings.ToUpper(strings.TrimSpace(query))
}
