package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	wfmodel "thoth-writer-api/internal/workflow/model"
)

// Builder 基于模板组装各写作流程的消息
type Builder struct {
	registry *Registry
}

func NewBuilder(registry *Registry) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Builder{registry: registry}
}

func (b *Builder) format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := b.registry.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return msgs, nil
}

// ChapterPlan 章节规划消息
func (b *Builder) ChapterPlan(ctx context.Context, in *wfmodel.ChapterPromptInput) ([]*schema.Message, error) {
	return b.format(ctx, PromptChapterPlanV1, map[string]any{
		"chapter_title":     strings.TrimSpace(in.Title),
		"chapter_prompt":    strings.TrimSpace(in.Prompt),
		"target_word_count": targetWords(in.TargetWordCount),
		"context_block":     in.ContextBlock,
	})
}

// ChapterWrite 章节写作的基础消息，分块指令由生成控制器追加
func (b *Builder) ChapterWrite(ctx context.Context, in *wfmodel.ChapterPromptInput) ([]*schema.Message, error) {
	excerpts := "none"
	if len(in.Snippets) > 0 {
		excerpts = strings.Join(in.Snippets, "\n---\n")
	}
	return b.format(ctx, PromptChapterWriteV1, map[string]any{
		"chapter_title":      strings.TrimSpace(in.Title),
		"chapter_prompt":     strings.TrimSpace(in.Prompt),
		"target_word_count":  targetWords(in.TargetWordCount),
		"chapter_plan":       strings.TrimSpace(in.Plan),
		"context_block":      strings.TrimSpace(in.ContextBlock),
		"retrieved_excerpts": excerpts,
	})
}

// BookOutline 整书大纲消息
func (b *Builder) BookOutline(ctx context.Context, in *wfmodel.OutlineInput) ([]*schema.Message, error) {
	return b.format(ctx, PromptBookOutlineV1, map[string]any{
		"chapter_count": in.ChapterCount,
		"book_prompt":   strings.TrimSpace(in.BookPrompt),
		"constraints":   constraintsJSON(in.Constraints),
	})
}

// Element 单文档生成/改写消息
func (b *Builder) Element(ctx context.Context, in *wfmodel.ElementPromptInput) ([]*schema.Message, error) {
	task := fmt.Sprintf("Rédige cet élément (%s) du projet.", in.ElementLabel)
	if in.Rewrite {
		task = fmt.Sprintf("Réécris cet élément (%s) du projet en conservant ce qui fonctionne.", in.ElementLabel)
	}
	return b.format(ctx, PromptElementGenerateV1, map[string]any{
		"task":          task,
		"title":         strings.TrimSpace(in.Title),
		"element_label": in.ElementLabel,
		"sections":      elementSections(in),
	})
}

func elementSections(in *wfmodel.ElementPromptInput) string {
	var blocks []string
	if s := strings.TrimSpace(in.Instructions); s != "" {
		blocks = append(blocks, "Consignes de l'auteur :\n"+s)
	}
	if s := strings.TrimSpace(in.Summary); s != "" {
		blocks = append(blocks, "Résumé à respecter :\n"+s)
	}
	if len(in.CommentLines) > 0 {
		blocks = append(blocks, "Commentaires de relecture à intégrer :\n"+strings.Join(in.CommentLines, "\n"))
	}
	switch {
	case in.MinWordCount != nil && in.MaxWordCount != nil:
		blocks = append(blocks, fmt.Sprintf("Longueur : entre %d et %d mots.", *in.MinWordCount, *in.MaxWordCount))
	case in.MinWordCount != nil:
		blocks = append(blocks, fmt.Sprintf("Longueur : au moins %d mots.", *in.MinWordCount))
	case in.MaxWordCount != nil:
		blocks = append(blocks, fmt.Sprintf("Longueur : au plus %d mots.", *in.MaxWordCount))
	}
	if s := strings.TrimSpace(in.SourceContent); s != "" {
		header := "Texte source"
		if in.SourceLabel != "" {
			header += " (" + in.SourceLabel + ")"
		}
		blocks = append(blocks, header+" :\n"+s)
	}
	if s := strings.TrimSpace(in.ContextBlock); s != "" {
		blocks = append(blocks, s)
	}
	if len(blocks) == 0 {
		return "Aucune consigne particulière."
	}
	return strings.Join(blocks, "\n\n")
}

// Agent 智能体动作消息；vars 中缺失的变量按空字符串处理
func (b *Builder) Agent(ctx context.Context, kind, action string, fields []string, vars map[string]any, projectContext map[string]any) ([]*schema.Message, error) {
	all := make(map[string]any, len(fields)+1)
	for _, f := range fields {
		all[f] = agentValue(vars[f])
	}
	all["context"] = agentContext(projectContext)
	return b.format(ctx, AgentPromptID(kind, action), all)
}

// agentValue 列表渲染为逐行列表，其它值转为字符串
func agentValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []string:
		return bulletList(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, agentValue(item))
		}
		return bulletList(items)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "- "+item)
		}
	}
	return strings.Join(lines, "\n")
}

// agentContext 附加在用户消息末尾的 CONTEXTE 块，键按字典序
func agentContext(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := agentValue(ctx[k])
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	if b.Len() == 0 {
		return ""
	}
	return "\n\nCONTEXTE:\n" + strings.TrimRight(b.String(), "\n")
}

// Chat 助手对话消息；pc 为空表示未绑定项目，history 按时间正序
func (b *Builder) Chat(ctx context.Context, pc *wfmodel.ProjectContext, history []*schema.Message, message string) ([]*schema.Message, error) {
	if history == nil {
		history = []*schema.Message{}
	}
	return b.format(ctx, PromptChatAssistantV1, map[string]any{
		"project_context": chatProjectBlock(pc),
		chatHistoryKey:    history,
		"message":         strings.TrimSpace(message),
	})
}

// chatProjectBlock 助手 system 消息末尾的项目概况
func chatProjectBlock(pc *wfmodel.ProjectContext) string {
	if pc == nil {
		return ""
	}
	p := pc.Project
	var b strings.Builder
	b.WriteString("\nCONTEXTE DU PROJET ACTUEL :\n")
	fmt.Fprintf(&b, "Titre : %s\n", orDash(p.Title))
	fmt.Fprintf(&b, "Genre : %s\n", orDash(p.Genre))
	fmt.Fprintf(&b, "Description : %s\n", orDash(p.Description))
	fmt.Fprintf(&b, "Structure : %s\n", orDash(p.StructureTemplate))
	fmt.Fprintf(&b, "Progression : %d / %d mots\n", p.CurrentWordCount, p.TargetWordCount)

	var characters []string
	for _, c := range pc.Characters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		line := "- " + name
		if role := strings.TrimSpace(c.Role); role != "" {
			line += " (" + role + ")"
		}
		if desc := strings.TrimSpace(c.Description); desc != "" {
			line += " : " + desc
		}
		characters = append(characters, line)
		if len(characters) == contextListLimit {
			break
		}
	}
	if len(characters) > 0 {
		b.WriteString("\nPERSONNAGES :\n")
		b.WriteString(strings.Join(characters, "\n"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nDOCUMENTS : %d chapitre(s)/scène(s)", len(pc.Documents))
	return b.String()
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

func targetWords(n int) any {
	if n <= 0 {
		return "unspecified"
	}
	return n
}
