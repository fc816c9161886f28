package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/domain/entity"
	apperrors "thoth-writer-api/pkg/errors"
)

func failWith(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Fail(c, err)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestFailMapsAppErrors(t *testing.T) {
	status, resp := failWith(t, apperrors.ErrVersionNotFound.WithDetail("v9"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(apperrors.CodeVersionNotFound), resp.Code)
	assert.Equal(t, "v9", resp.Detail)

	status, _ = failWith(t, apperrors.ErrGenerationTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, status)

	status, _ = failWith(t, apperrors.ErrConflict)
	assert.Equal(t, http.StatusConflict, status)
}

func TestFailHidesUnknownErrors(t *testing.T) {
	status, resp := failWith(t, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, string(apperrors.CodeInternalError), resp.Code)
	assert.Empty(t, resp.Detail)
	assert.NotContains(t, resp.Message, "pq")
}

func TestGenerationRequestDefaults(t *testing.T) {
	var chapter ChapterGenerationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"project_id":"p1","chapter_prompt":"x"}`), &chapter))
	req := chapter.ToRequest("u1")
	assert.True(t, req.UseRAG)
	assert.True(t, req.CreateDocument)
	assert.Equal(t, "u1", req.UserID)

	var book BookGenerationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"project_id":"p1","use_rag":false,"create_documents":false}`), &book))
	params := book.ToParams()
	assert.False(t, params.UseRAG)
	assert.False(t, params.CreateDocuments)

	var index IndexProjectRequest
	require.NoError(t, json.Unmarshal([]byte(`{"project_id":"p1"}`), &index))
	assert.True(t, index.ClearExistingOrDefault())
}

func TestDocumentListingOmitsLedger(t *testing.T) {
	doc := entity.NewDocument("p1", "Ch 1", "some words here", entity.DocumentTypeChapter, 0)
	doc.Metadata[entity.MetaVersions] = []any{map[string]any{"id": "v1"}}
	doc.Metadata[entity.MetaComments] = []any{}
	doc.Metadata["summary"] = "s"

	listed := ToDocumentResponse(doc, false)
	assert.Empty(t, listed.Content)
	assert.NotContains(t, listed.Metadata, entity.MetaVersions)
	assert.NotContains(t, listed.Metadata, entity.MetaComments)
	assert.Equal(t, "s", listed.Metadata["summary"])
	assert.Contains(t, doc.Metadata, entity.MetaVersions)

	full := ToDocumentResponse(doc, true)
	assert.Equal(t, "some words here", full.Content)
	assert.Equal(t, 3, full.WordCount)
}

func TestGenerateElementCommentIDs(t *testing.T) {
	var absent, empty GenerateElementRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"comment_ids":[]}`), &empty))
	assert.Nil(t, absent.CommentIDs)
	assert.NotNil(t, empty.CommentIDs)
	assert.Empty(t, empty.CommentIDs)
}
