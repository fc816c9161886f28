package model

// ChapterPromptInput 章节规划/写作提示词输入
type ChapterPromptInput struct {
	Title           string
	Prompt          string
	TargetWordCount int
	Plan            string
	ContextBlock    string
	Snippets        []string
}

// OutlineInput 整书大纲提示词输入
type OutlineInput struct {
	BookPrompt   string
	ChapterCount int
	Constraints  map[string]any
}

// OutlineEntry 大纲中的一章
type OutlineEntry struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// ElementPromptInput 单文档生成/改写提示词输入
type ElementPromptInput struct {
	Title        string
	ElementLabel string
	Rewrite      bool
	Instructions string
	Summary      string
	CommentLines []string
	MinWordCount *int
	MaxWordCount *int

	SourceContent string
	SourceLabel   string

	ContextBlock string
}

// ChunkDirective 分块续写时附加在提示词末尾的指令
type ChunkDirective struct {
	MinWordCount *int
	MaxWordCount *int
	CurrentWords int
	// ChunkWords 为 0 表示不限制本次篇幅
	ChunkWords int
	Hint       string
}
