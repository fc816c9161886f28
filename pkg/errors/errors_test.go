package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	derived := ErrVersionNotFound.WithDetail("v-404")

	assert.Equal(t, "v-404", derived.Detail)
	assert.Empty(t, ErrVersionNotFound.Detail)
	assert.True(t, stderrors.Is(derived, ErrVersionNotFound))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("element generation: %w", ErrGenerationTimeout.WithDetail("deadline"))

	assert.True(t, IsCode(err, CodeGenerationTimeout))
	assert.False(t, IsCode(err, CodeGenerationFailed))
	assert.Equal(t, http.StatusGatewayTimeout, AsAppError(err).HTTPStatus)
}

func TestIsNotFound(t *testing.T) {
	cases := map[*AppError]bool{
		ErrDocumentNotFound: true,
		ErrCommentNotFound:  true,
		ErrProjectNotFound:  true,
		ErrInvalidParam:     false,
		ErrGenerationFailed: false,
	}
	for err, want := range cases {
		assert.Equal(t, want, IsNotFound(err), string(err.Code))
	}
}

func TestAsAppErrorFallback(t *testing.T) {
	appErr := AsAppError(stderrors.New("boom"))

	assert.Equal(t, CodeUnknown, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}
