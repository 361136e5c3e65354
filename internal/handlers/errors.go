package handlers

import (
	"errors"

	"github.com/equipdesk/backend/internal/services"
	"github.com/equipdesk/backend/pkg/logger"
	"github.com/equipdesk/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// External message for every authentication failure. Callers cannot tell a bad
// password from an unknown email, or an expired token from a replayed one.
const (
	msgInvalidCredentials = "invalid email or password"
	msgInvalidToken       = "invalid or expired token"
)

// errorMapping turns one service error kind into a client response. detail
// reports whether the wrapped message is shown instead of the fixed one.
type errorMapping struct {
	kind   error
	build  func(msg string) *response.AppError
	msg    string
	detail bool
}

var errorMappings = []errorMapping{
	{kind: services.ErrInvalidInput, build: response.NewBadRequest, msg: "invalid input", detail: true},
	{kind: services.ErrInvalidCredentials, build: response.NewUnauthorized, msg: msgInvalidCredentials},
	{kind: services.ErrInvalidToken, build: response.NewUnauthorized, msg: msgInvalidToken},
	{kind: services.ErrReuseDetected, build: response.NewUnauthorized, msg: msgInvalidToken},
	{kind: services.ErrNotFound, build: response.NewNotFound, msg: "not found", detail: true},
	{kind: services.ErrAlreadyExists, build: response.NewConflict, msg: "already exists", detail: true},
}

// toAppError maps err to its client response. ok is false for unmapped errors.
func toAppError(err error) (appErr *response.AppError, ok bool) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		if m.detail {
			return m.build(err.Error()), true
		}
		return m.build(m.msg), true
	}
	return nil, false
}

// respondError writes the mapped response for err. Unmapped errors are logged with
// the request context and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := toAppError(err); ok {
		response.Error(c, appErr)
		return
	}
	logger.WithRequest(logger.Error(), c).Err(err).Msg("unhandled error")
	response.Error(c, err)
}
