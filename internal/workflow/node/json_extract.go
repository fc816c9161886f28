// Package node 收纳工作流节点共用的模型输出处理工具
package node

import "strings"

// ExtractJSONObject 从模型输出中截取第一个完整的 JSON 对象或数组。
// 会剥离 ``` 代码围栏并按括号配对截取；找不到时原样返回去空白后的文本。
func ExtractJSONObject(s string) string {
	raw := stripCodeFence(strings.TrimSpace(s))
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}
	if end := matchingClose(raw, start); end > start {
		return raw[start : end+1]
	}
	return raw[start:]
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// matchingClose 返回与 s[start] 配对的闭合括号下标，字符串字面量内的括号不计
func matchingClose(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
