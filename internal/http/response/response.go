package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/avatar-interview-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError renders an *apierr.Error; a nil status falls back to 500.
func RespondAPIError(c *gin.Context, err *apierr.Error) {
	status := http.StatusInternalServerError
	if err != nil && err.Status != 0 {
		status = err.Status
	}
	code, msg := "", "unknown error"
	if err != nil {
		code = err.Code
		if pub := err.Public(); pub != "" {
			msg = pub
		}
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
