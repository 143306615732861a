package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/http/response"
	"github.com/yungbote/avatar-interview-backend/internal/platform/apierr"
)

// upstreamMessages replace provider error text in 5xx responses.
var upstreamMessages = map[domain.Kind]string{
	domain.KindUpstreamTranscriptionFailure: "speech recognition failed",
	domain.KindUpstreamGenerationFailure:    "question generation failed",
	domain.KindUpstreamSynthesisFailure:     "speech synthesis failed",
	domain.KindUpstreamCompositingFailure:   "video compositing failed",
	domain.KindUpstreamTemplateFailure:      "template video could not be fetched",
	domain.KindMalformedUpstreamResponse:    "language model returned an unusable response",
}

// toAPIError maps engine errors onto HTTP statuses.
func toAPIError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindNotFound:
		return apierr.New(http.StatusNotFound, string(kind), err)
	case domain.KindAlreadyExists, domain.KindAlreadyCompleted:
		return apierr.New(http.StatusConflict, string(kind), err)
	case domain.KindMissingParameters:
		return apierr.New(http.StatusBadRequest, string(kind), err)
	}
	if domain.IsUpstream(err) {
		msg, ok := upstreamMessages[kind]
		if !ok {
			msg = "upstream dependency failed"
		}
		return apierr.Masked(http.StatusBadGateway, string(kind), msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Masked(http.StatusGatewayTimeout, "timeout", "request timed out", err)
	}
	return apierr.Masked(http.StatusInternalServerError, "internal_error", "internal error", err)
}

func respondEngineError(c *gin.Context, err error) {
	_ = c.Error(err)
	response.RespondAPIError(c, toAPIError(err))
}
