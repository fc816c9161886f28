package handler

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/application/agent"
	"thoth-writer-api/internal/interfaces/http/dto"
	wfmodel "thoth-writer-api/internal/workflow/model"
	"thoth-writer-api/pkg/errors"
)

// ProjectContextBuilder 为代理调用加载项目上下文
type ProjectContextBuilder interface {
	BuildProjectContext(ctx context.Context, projectID, userID string) (*wfmodel.ProjectContext, error)
}

// AgentHandler 写作助手
type AgentHandler struct {
	agents   *agent.Service
	contexts ProjectContextBuilder
}

// NewAgentHandler 创建助手处理器
func NewAgentHandler(agents *agent.Service, contexts ProjectContextBuilder) *AgentHandler {
	return &AgentHandler{agents: agents, contexts: contexts}
}

// ListAgents 列出可用助手及其动作
// @Router /v1/agents [get]
func (h *AgentHandler) ListAgents(c *gin.Context) {
	dto.Success(c, h.agents.List())
}

// ExecuteAgent 执行助手动作
// @Router /v1/agents/{kind}/execute [post]
func (h *AgentHandler) ExecuteAgent(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.ExecuteAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var projectContext map[string]any
	if req.ProjectID != "" {
		ctx = withProject(ctx, req.ProjectID)
		pc, err := h.contexts.BuildProjectContext(ctx, req.ProjectID, userID)
		if err != nil {
			failWith(c, err)
			return
		}
		projectContext, err = toMap(pc)
		if err != nil {
			failWith(c, errors.Wrap(err, errors.CodeInternalError, "failed to encode project context"))
			return
		}
	}

	result, err := h.agents.Dispatch(ctx, agent.Kind(c.Param("kind")), req.Action, req.Task, projectContext)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, result.Fields())
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
