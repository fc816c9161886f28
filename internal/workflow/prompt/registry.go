package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptChapterPlanV1     PromptID = "chapter_plan_v1"
	PromptChapterWriteV1    PromptID = "chapter_write_v1"
	PromptBookOutlineV1     PromptID = "book_outline_v1"
	PromptElementGenerateV1 PromptID = "element_generate_v1"
	PromptChatAssistantV1   PromptID = "chat_assistant_v1"
)

// 助手对话模板中历史消息的占位变量
const chatHistoryKey = "history"

// AgentPromptID 智能体动作的提示词 ID，system 按智能体共享
func AgentPromptID(kind, action string) PromptID {
	return PromptID("agent_" + kind + "_" + action)
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	if id == PromptChatAssistantV1 {
		// 对话模板：system + 历史消息 + 当前用户消息
		tpl := einoprompt.FromMessages(
			schema.FString,
			schema.SystemMessage(system),
			schema.MessagesPlaceholder(chatHistoryKey, true),
			schema.UserMessage("{message}"),
		)
		r.cache[id] = tpl
		return tpl, nil
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptChapterPlanV1, PromptChapterWriteV1, PromptBookOutlineV1, PromptElementGenerateV1:
		return "templates/" + string(id) + ".system.txt", "templates/" + string(id) + ".user.txt", nil
	case PromptChatAssistantV1:
		return "templates/" + string(id) + ".system.txt", "", nil
	}

	// agent_<kind>_<action>：kind 本身含下划线，按已知智能体前缀匹配
	name := string(id)
	if strings.HasPrefix(name, "agent_") {
		for _, kind := range agentKinds {
			prefix := "agent_" + kind + "_"
			if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
				return "templates/agent_" + kind + ".system.txt", "templates/" + name + ".user.txt", nil
			}
		}
	}
	return "", "", fmt.Errorf("unknown prompt id: %s", id)
}

var agentKinds = []string{"narrative_architect", "character_manager", "style_expert", "dialogue_master"}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
