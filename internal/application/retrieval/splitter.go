package retrieval

import "strings"

// splitByRunes 按字符窗口切分，相邻窗口重叠 overlapRunes 个字符
func splitByRunes(s string, maxRunes int, overlapRunes int) []string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil
	}
	runes := []rune(raw)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return []string{raw}
	}
	overlapRunes = max(overlapRunes, 0)
	step := maxRunes - overlapRunes
	if step <= 0 {
		step = maxRunes
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+maxRunes, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
