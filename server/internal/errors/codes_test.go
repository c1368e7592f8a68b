package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/hrygo/timextag/plugin/temporal"
	"github.com/hrygo/timextag/server/service/tagger"
	"github.com/hrygo/timextag/store"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"invalid date", &temporal.Error{Kind: temporal.KindInvalidDateFormat, Message: "bad", Value: "2023-02-30"}, ErrCodeInvalidDateFormat, http.StatusBadRequest},
		{"no strategy", temporal.ErrNoReferenceDate, ErrCodeNoReferenceDate, http.StatusBadRequest},
		{"missing file date", &temporal.Error{Kind: temporal.KindMissingFileDate}, ErrCodeMissingFileDate, http.StatusUnprocessableEntity},
		{"no valid annotation", &temporal.Error{Kind: temporal.KindNoValidDateInAnnotations}, ErrCodeNoValidDateInAnnotations, http.StatusUnprocessableEntity},
		{"extractor", &tagger.ExtractionError{DocumentID: "d", Cause: stderrors.New("502 from server")}, ErrCodeExtractorUnavailable, http.StatusBadGateway},
		{"extractor timeout", &tagger.ExtractionError{DocumentID: "d", Cause: pkgerrors.Wrap(context.DeadlineExceeded, "slow")}, ErrCodeTimeout, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, ErrCodeContextCanceled, 499},
		{"not found", pkgerrors.Wrap(store.ErrDocumentNotFound, "id x"), ErrCodeNotFound, http.StatusNotFound},
		{"store span", pkgerrors.Wrap(store.ErrInvalidSpan, "input annotation 0"), ErrCodeInvalidSpan, http.StatusBadRequest},
		{"no text", tagger.ErrNoDocumentText, ErrCodeInvalidArgument, http.StatusBadRequest},
		{"unknown", stderrors.New("disk on fire"), ErrCodeInternal, http.StatusInternalServerError},
		{"already classified", RateLimitExceeded("slow down"), ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
			assert.True(t, IsCode(apiErr, tt.code))
		})
	}

	assert.Nil(t, FromError(nil))
}

func TestFromErrorKeepsValue(t *testing.T) {
	apiErr := FromError(&temporal.Error{Kind: temporal.KindInvalidDateFormat, Message: "bad", Value: "2023-13-01"})
	assert.Equal(t, "2023-13-01", apiErr.Context["value"])
}

func TestAPIErrorFormatting(t *testing.T) {
	err := Wrap(stderrors.New("boom"), ErrCodeInternal, "failed")
	assert.Equal(t, "[INTERNAL] failed: boom", err.Error())
	assert.Equal(t, "[NOT_FOUND] gone", NotFound("gone").Error())
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(stderrors.New("x"), ErrCodeInternal))
	assert.Equal(t, ErrCodeNotFound, GetCodeFromError(NotFound("x"), ErrCodeInternal))
	assert.False(t, IsCode(stderrors.New("x"), ErrCodeInternal))
}
