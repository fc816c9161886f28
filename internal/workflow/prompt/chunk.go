package prompt

import (
	"fmt"
	"strings"

	wfmodel "thoth-writer-api/internal/workflow/model"
	"thoth-writer-api/pkg/utils"
)

// ContinuationHint 续写提示：无内容时从头开始，否则附上末尾 chars 个字符
func ContinuationHint(content string, chars int) string {
	if strings.TrimSpace(content) == "" {
		return "Start from the beginning."
	}
	return "Last excerpt:\n" + utils.TailRunes(content, chars) + "\n" +
		"Continue from the excerpt without repeating earlier text."
}

// RenderChunkDirective 渲染分块续写指令
func RenderChunkDirective(d wfmodel.ChunkDirective) string {
	var b strings.Builder
	if d.MinWordCount != nil {
		fmt.Fprintf(&b, "Minimum word count: %d\n", *d.MinWordCount)
	}
	if d.MaxWordCount != nil {
		fmt.Fprintf(&b, "Maximum word count: %d\n", *d.MaxWordCount)
	}
	if d.MinWordCount != nil || d.MaxWordCount != nil {
		fmt.Fprintf(&b, "Current word count: %d\n", d.CurrentWords)
	}
	if d.ChunkWords > 0 {
		fmt.Fprintf(&b, "Write the next part in about %d words.\n", d.ChunkWords)
	} else {
		b.WriteString("Write the full text.\n")
	}
	if d.Hint != "" {
		b.WriteString(d.Hint)
		b.WriteString("\n")
	}
	if d.CurrentWords > 0 {
		b.WriteString("Return only the next part without repeating earlier text.")
	} else {
		b.WriteString("Return only the text, no extra commentary.")
	}
	return b.String()
}
