package retrieval

import (
	"encoding/json"
	"strings"
)

const passageMetaPrefix = "@@meta:"

// PassageMeta 随片段写入 text_content 的来源信息，检索时剥离
type PassageMeta struct {
	DocumentID   string `json:"document_id,omitempty"`
	Title        string `json:"title,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	OrderIndex   int    `json:"order_index"`
	ChunkIndex   int    `json:"chunk_index"`
}

func encodePassageText(meta PassageMeta, text string) string {
	b, _ := json.Marshal(meta)
	var sb strings.Builder
	sb.Grow(len(passageMetaPrefix) + len(b) + 1 + len(text))
	sb.WriteString(passageMetaPrefix)
	sb.Write(b)
	sb.WriteByte('\n')
	sb.WriteString(text)
	return sb.String()
}

// decodePassageText 无前缀或元信息损坏时按纯文本处理
func decodePassageText(textContent string) (PassageMeta, string) {
	raw := strings.TrimSpace(textContent)
	rest, ok := strings.CutPrefix(raw, passageMetaPrefix)
	if !ok {
		return PassageMeta{}, raw
	}
	line, body, ok := strings.Cut(rest, "\n")
	if !ok {
		return PassageMeta{}, raw
	}
	var meta PassageMeta
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &meta); err != nil {
		return PassageMeta{}, strings.TrimSpace(body)
	}
	return meta, strings.TrimSpace(body)
}
