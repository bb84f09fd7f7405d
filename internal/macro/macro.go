// Package macro 展开下游回传 URL 模板中的 {name} 占位符
package macro

import (
	"fmt"
	"regexp"
	"strings"
)

// Macro 回传 URL 模板中的占位符名
type Macro string

const (
	UserID        Macro = "user_id"
	Username      Macro = "username"
	ClickID       Macro = "click_id"
	OfferID       Macro = "offer_id"
	TransactionID Macro = "transaction_id"
	Status        Macro = "status"
	Payout        Macro = "payout"
	Points        Macro = "points"
	Timestamp     Macro = "timestamp"
)

var vocabulary = []Macro{UserID, Username, ClickID, OfferID, TransactionID, Status, Payout, Points, Timestamp}

var (
	known   map[string]struct{}
	tokenRe = regexp.MustCompile(`\{([^{}]+)\}`)
	nameRe  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func init() {
	known = make(map[string]struct{}, len(vocabulary))
	for _, m := range vocabulary {
		if !nameRe.MatchString(string(m)) {
			panic(fmt.Sprintf("macro: 非法的宏名 %q", m))
		}
		if _, dup := known[string(m)]; dup {
			panic(fmt.Sprintf("macro: 重复的宏 %q", m))
		}
		known[string(m)] = struct{}{}
	}
}

// Supported 按声明顺序返回支持的宏
func Supported() []Macro {
	out := make([]Macro, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// IsSupported 判断是否为支持的宏
func IsSupported(name string) bool {
	_, ok := known[name]
	return ok
}

// Render 单遍扫描，把已知的 {name} 替换为 ctx[name]（缺省为空串）。
// 未知占位符原样保留，替换进去的值不会被再次展开。
func Render(template string, ctx map[string]string) string {
	if !strings.Contains(template, "{") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	i := 0
	for i < len(template) {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}
		open += i
		b.WriteString(template[i:open])

		end := strings.IndexByte(template[open+1:], '}')
		if end < 0 {
			b.WriteString(template[open:])
			break
		}
		end += open + 1

		name := template[open+1 : end]
		// "{{user_id}" 从最内层的 { 开始算占位符
		if k := strings.LastIndexByte(name, '{'); k >= 0 {
			b.WriteString(template[open : open+1+k])
			i = open + 1 + k
			continue
		}

		if IsSupported(name) {
			b.WriteString(ctx[name])
		} else {
			b.WriteString(template[open : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// HasMacros 模板中是否至少包含一个已知宏
func HasMacros(template string) bool {
	for _, name := range ExtractMacros(template) {
		if IsSupported(name) {
			return true
		}
	}
	return false
}

// ExtractMacros 按首次出现顺序返回模板中所有 {token}，不论是否支持
func ExtractMacros(template string) []string {
	matches := tokenRe.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// ValidateMacros 列出不支持的占位符
func ValidateMacros(template string) (bool, []string) {
	var unsupported []string
	for _, name := range ExtractMacros(template) {
		if !IsSupported(name) {
			unsupported = append(unsupported, name)
		}
	}
	return len(unsupported) == 0, unsupported
}
