package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountWords 统计以空白分隔的词数
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// TruncateWords 截断到前 n 个空白分隔的词，保留词间原有空白
func TruncateWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			if inWord && count == n {
				return s[:i]
			}
			inWord = false
			continue
		}
		if !inWord {
			inWord = true
			count++
		}
	}
	return s
}

// HeadRunes 返回前 n 个字符
func HeadRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// TailRunes 返回末尾 n 个字符
func TailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= n {
		return s
	}
	skip := total - n
	i := 0
	for pos := range s {
		if i == skip {
			return s[pos:]
		}
		i++
	}
	return ""
}

// RuneLen 返回字符数
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
