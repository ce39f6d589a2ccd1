package utils

import (
	"strings"
	"unicode"
)

// 标题匹配时忽略的常见虚词
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "with": true, "by": true,
}

// DeduplicateSlice 去重字符串切片，忽略空白项，保留首次出现的顺序
func DeduplicateSlice(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	for _, val := range input {
		val = strings.TrimSpace(val)
		if val != "" && !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}

	return result
}

// NormalizeText 去除首尾空白、合并连续空白并转为小写
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CollapseSpaces 合并连续空白，保留大小写
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RemoveStopWords 去除虚词，只有超过两个词时才处理，且不会返回空串
func RemoveStopWords(query string) string {
	cleaned := NormalizeText(query)
	words := strings.Fields(cleaned)
	if len(words) <= 2 {
		return cleaned
	}

	filtered := make([]string, 0, len(words))
	for _, w := range words {
		if !stopWords[w] {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) == 0 {
		return cleaned
	}
	return strings.Join(filtered, " ")
}

// WordSet 将文本拆分为去除标点和虚词后的词集合
func WordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}) {
		if !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

// Jaccard 计算两个词集合的Jaccard相似度
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	overlap := 0
	for w := range a {
		if b[w] {
			overlap++
		}
	}
	union := len(a) + len(b) - overlap
	return float64(overlap) / float64(union)
}

// EstimateTokens 粗略估算文本的token数量：中文字符2token，英文单词1token
func EstimateTokens(text string) int {
	chinese := 0
	for _, r := range text {
		if r >= '一' && r <= '龥' {
			chinese++
		}
	}

	english := len(strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	}))

	return chinese*2 + english
}

// Preview 截断文本用于日志输出，避免日志过长
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// 避免截断到多字节字符中间
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// ExtractJSON 从模型输出中提取JSON部分
// 优先处理```json代码块，其次取最外层的对象，最后取数组
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	// 查找```json和```之间的内容
	for _, startMarker := range []string{"```json", "```JSON", "```"} {
		startIdx := strings.Index(text, startMarker)
		if startIdx < 0 {
			continue
		}
		startIdx += len(startMarker)
		endIdx := strings.Index(text[startIdx:], "```")
		if endIdx > 0 {
			return strings.TrimSpace(text[startIdx : startIdx+endIdx])
		}
	}

	// 补全接口要求输出对象，先找对象，找不到再找数组
	if objStart := strings.Index(text, "{"); objStart >= 0 {
		if end := strings.LastIndex(text, "}"); end > objStart {
			obj := text[objStart : end+1]
			// 数组完整包住对象时，对象只是数组里的一个元素
			arrStart := strings.Index(text, "[")
			arrEnd := strings.LastIndex(text, "]")
			if arrStart < 0 || arrStart > objStart || arrEnd < end {
				return obj
			}
		}
	}
	if arrStart := strings.Index(text, "["); arrStart >= 0 {
		if end := strings.LastIndex(text, "]"); end > arrStart {
			return text[arrStart : end+1]
		}
	}

	// 如果仍然找不到，返回原始文本
	return text
}
