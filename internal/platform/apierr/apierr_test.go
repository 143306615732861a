package apierr

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskedHidesCause(t *testing.T) {
	cause := errors.New("openai: 500 upstream exploded sk-abc")
	e := Masked(http.StatusBadGateway, "upstream", "speech synthesis failed", cause)
	assert.Equal(t, "speech synthesis failed", e.Public())
	assert.Equal(t, cause.Error(), e.Error())
	assert.ErrorIs(t, e, cause)
}

func TestPublicFallbacks(t *testing.T) {
	assert.Equal(t, "bad", New(http.StatusBadRequest, "x", errors.New("bad")).Public())
	assert.Equal(t, "Not Found", New(http.StatusNotFound, "x", nil).Public())
	assert.Equal(t, "unknown error", (&Error{}).Public())
	var nilErr *Error
	assert.Equal(t, "", nilErr.Public())
	assert.ErrorIs(t, New(http.StatusGatewayTimeout, "timeout", context.DeadlineExceeded), context.DeadlineExceeded)
}
