// Package domain 包含股票代码解析的领域模型：查询分类、别名索引、报价推导、错误类型与上游端口
package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// StockAliasEntry 海外股票数据集中的一行
type StockAliasEntry struct {
	// 股票代码（大写，如 TSLA）
	Ticker string `json:"ticker"`
	// 英文公司名
	EnglishName string `json:"en"`
	// 韩文别名（可为空）
	KoreanNames []string `json:"ko"`
	// 交易所（如 NASDAQ）
	Exchange string `json:"exchange"`
}

// ResolvedAlias 别名解析结果
type ResolvedAlias struct {
	Ticker      string `json:"ticker"`
	EnglishName string `json:"englishName,omitempty"`
	Exchange    string `json:"exchange,omitempty"`
}

// NormalizeKey 查找键归一化：NFC + 去除首尾空白 + 小写
// macOS 输入法会产生 NFD 形式的韩文，需先合成再比较
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// AliasIndex 海外股票别名索引，构建后只读，可并发访问
type AliasIndex struct {
	entries []StockAliasEntry
	byKey   map[string]ResolvedAlias
}

// NewAliasIndex 按数据集顺序构建索引，键冲突时后写覆盖
func NewAliasIndex(entries []StockAliasEntry) *AliasIndex {
	idx := &AliasIndex{
		entries: make([]StockAliasEntry, len(entries)),
		byKey:   make(map[string]ResolvedAlias, len(entries)*4),
	}
	copy(idx.entries, entries)

	for _, e := range idx.entries {
		v := ResolvedAlias{Ticker: e.Ticker, EnglishName: e.EnglishName, Exchange: e.Exchange}
		for _, ko := range e.KoreanNames {
			idx.put(ko, v)
		}
		idx.put(e.EnglishName, v)
		if e.Ticker != "" {
			idx.put(strings.ToUpper(strings.TrimSpace(e.Ticker)), v)
		}
	}
	return idx
}

func (idx *AliasIndex) put(alias string, v ResolvedAlias) {
	if key := NormalizeKey(alias); key != "" {
		idx.byKey[key] = v
	}
}

// Len 返回索引键数量
func (idx *AliasIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byKey)
}

// Entries 返回数据集条目数量
func (idx *AliasIndex) Entries() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// ExactMatch 归一化后直接查表
func (idx *AliasIndex) ExactMatch(query string) *ResolvedAlias {
	if idx == nil {
		return nil
	}
	key := NormalizeKey(query)
	if key == "" {
		return nil
	}
	if v, ok := idx.byKey[key]; ok {
		return &v
	}
	return nil
}

// PartialMatch 按数据集顺序线性扫描，返回第一个命中的条目（不做相似度排序）
// 每个条目依次检查：韩文别名双向包含、英文名包含查询、代码包含查询
func (idx *AliasIndex) PartialMatch(query string) *ResolvedAlias {
	if idx == nil {
		return nil
	}
	q := NormalizeKey(query)
	if q == "" {
		return nil
	}

	for _, e := range idx.entries {
		if matchKorean(e.KoreanNames, q) ||
			(e.EnglishName != "" && strings.Contains(lower(e.EnglishName), q)) ||
			(e.Ticker != "" && strings.Contains(lower(e.Ticker), q)) {
			return &ResolvedAlias{Ticker: e.Ticker, EnglishName: e.EnglishName, Exchange: e.Exchange}
		}
	}
	return nil
}

// 别名只做小写不做 trim；空白别名会被任意查询包含，跳过
func matchKorean(names []string, q string) bool {
	for _, ko := range names {
		if strings.TrimSpace(ko) == "" {
			continue
		}
		alias := lower(ko)
		if strings.Contains(alias, q) || strings.Contains(q, alias) {
			return true
		}
	}
	return false
}

func lower(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// Lookup 先精确匹配，未命中再部分匹配
func (idx *AliasIndex) Lookup(query string) *ResolvedAlias {
	if v := idx.ExactMatch(query); v != nil {
		return v
	}
	return idx.PartialMatch(query)
}
