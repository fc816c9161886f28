package writing

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"thoth-writer-api/internal/application/generation"
	apperrors "thoth-writer-api/pkg/errors"
)

// 章节目标字数下限
const minTargetWordCount = 100

// Validate 校验章节请求
func (r *ChapterRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.ChapterPrompt, validation.Required),
		validation.Field(&r.TargetWordCount, validation.NilOrNotEmpty, validation.Min(minTargetWordCount)),
		validation.Field(&r.OrderIndex, validation.Min(0)),
	)
	return invalidInput(err)
}

// Validate 校验整书请求
func (r *BookRequest) Validate(maxChapters int) error {
	if maxChapters <= 0 {
		maxChapters = DefaultSettings().MaxBookChapters
	}
	err := validation.ValidateStruct(r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.BookPrompt, validation.Required),
		validation.Field(&r.ChapterCount, validation.Required, validation.Min(1), validation.Max(maxChapters)),
		validation.Field(&r.PerChapterWordCount, validation.NilOrNotEmpty, validation.Min(minTargetWordCount)),
	)
	return invalidInput(err)
}

// Validate 校验单文档生成请求
func (r *ElementRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.MinWordCount, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.MaxWordCount, validation.NilOrNotEmpty, validation.Min(1)),
	)
	if err != nil {
		return invalidInput(err)
	}
	return generation.ValidateBounds(r.MinWordCount, r.MaxWordCount)
}

// Validate 校验人工编辑请求
func (r *ManualEditRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.Content, validation.Required, validation.By(notBlank)),
	)
	return invalidInput(err)
}

// notBlank 拒绝只含空白字符的文本；Required 只检查空串
func notBlank(value any) error {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}

func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.ErrInvalidParam.WithDetail(err.Error())
}
