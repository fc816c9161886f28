package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	wfmodel "thoth-writer-api/internal/workflow/model"
)

// 上下文块中每类列表的最大条目数
const contextListLimit = 20

// FormatProjectContext 将项目上下文渲染为提示词块，相同输入输出一致。
// constraints 非空时优先于项目自身的约束。
func FormatProjectContext(pc *wfmodel.ProjectContext, constraints map[string]any) string {
	if pc == nil {
		pc = &wfmodel.ProjectContext{}
	}
	if len(constraints) == 0 {
		constraints = pc.Constraints
	}

	characters := make([]string, 0, contextListLimit)
	for _, c := range pc.Characters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		role := strings.TrimSpace(c.Role)
		if role == "" {
			role = "unknown"
		}
		characters = append(characters, fmt.Sprintf("%s (%s)", name, role))
		if len(characters) == contextListLimit {
			break
		}
	}

	documents := make([]string, 0, contextListLimit)
	for _, d := range pc.Documents {
		if t := strings.TrimSpace(d.Title); t != "" {
			documents = append(documents, t)
			if len(documents) == contextListLimit {
				break
			}
		}
	}

	instructions := make([]string, 0, contextListLimit)
	for _, in := range pc.Instructions {
		title, detail := strings.TrimSpace(in.Title), strings.TrimSpace(in.Detail)
		if title == "" || detail == "" {
			continue
		}
		instructions = append(instructions, title+": "+detail)
		if len(instructions) == contextListLimit {
			break
		}
	}

	p := pc.Project
	var b strings.Builder
	b.WriteString("Project context:\n")
	fmt.Fprintf(&b, "- Title: %s\n", p.Title)
	fmt.Fprintf(&b, "- Genre: %s\n", orNone(p.Genre))
	fmt.Fprintf(&b, "- Description: %s\n", orNone(p.Description))
	fmt.Fprintf(&b, "- Structure: %s\n", orNone(p.StructureTemplate))
	fmt.Fprintf(&b, "- Word count: %d / %d\n", p.CurrentWordCount, p.TargetWordCount)
	fmt.Fprintf(&b, "- Characters: %s\n", orNone(strings.Join(characters, ", ")))
	fmt.Fprintf(&b, "- Documents: %s\n", orNone(strings.Join(documents, ", ")))
	fmt.Fprintf(&b, "- Instructions: %s\n", orNone(strings.Join(instructions, "; ")))
	fmt.Fprintf(&b, "- Constraints: %s\n", constraintsJSON(constraints))
	return b.String()
}

// constraintsJSON map 键按字典序输出
func constraintsJSON(constraints map[string]any) string {
	if len(constraints) == 0 {
		return "{}"
	}
	b, err := json.Marshal(constraints)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
