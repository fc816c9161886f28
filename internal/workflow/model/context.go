package model

// ProjectContext 生成流程使用的项目上下文快照，可序列化后缓存
type ProjectContext struct {
	Project      ProjectSummary     `json:"project"`
	Characters   []CharacterSummary `json:"characters"`
	Documents    []DocumentSummary  `json:"documents"`
	Instructions []Instruction      `json:"instructions"`
	Constraints  map[string]any     `json:"constraints"`
}

type ProjectSummary struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Genre             string `json:"genre"`
	StructureTemplate string `json:"structure_template"`
	CurrentWordCount  int    `json:"current_word_count"`
	TargetWordCount   int    `json:"target_word_count"`
}

type CharacterSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

type DocumentSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
	OrderIndex   int    `json:"order_index"`
	WordCount    int    `json:"word_count"`
	Preview      string `json:"preview"`
}

type Instruction struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}
