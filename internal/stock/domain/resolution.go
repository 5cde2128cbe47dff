package domain

import (
	"bytes"
	"encoding/json"
)

// Stage 产生最终代码的解析阶段
type Stage string

const (
	StageDomestic       Stage = "domestic"
	StageTickerPattern  Stage = "ticker_pattern"
	StageRemoteSearch   Stage = "remote_search"
	StageAliasIndex     Stage = "alias_index"
	StageDomesticSearch Stage = "domestic_search"
	StageRawFallback    Stage = "raw_fallback"
)

// Resolution 一次解析的结果记录
type Resolution struct {
	Query  string
	Kind   QueryKind
	Stage  Stage
	Symbol string
}

// IsErrorResponse 判断上游 JSON 响应是否表示失败：响应为空或假值，或对象中 error 字段为真值
func IsErrorResponse(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if isFalsy(trimmed) {
		return true
	}
	if trimmed[0] != '{' {
		return false
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return true
	}
	v, ok := body["error"]
	return ok && !isFalsy(bytes.TrimSpace(v))
}

func isFalsy(v []byte) bool {
	switch string(v) {
	case "", "null", "false", `""`, "0":
		return true
	}
	return false
}

// SymbolField 读取上游 JSON 响应中的 symbol 字段
func SymbolField(raw json.RawMessage) string {
	var body struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Symbol
}
