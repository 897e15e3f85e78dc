package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/music-dna/internal/matchmaker"
	"github.com/spigell/music-dna/internal/persona"
)

const accessTokenHeader = "X-Access-Token"

// Response is the envelope of every API answer.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

var errBadRequest = errors.New("bad request")

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, matchmaker.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, matchmaker.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, matchmaker.ErrContactsPrivate):
		status = http.StatusForbidden
	case errors.Is(err, matchmaker.ErrNotFound), errors.Is(err, persona.ErrUnknownPersona):
		status = http.StatusNotFound
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		message = "internal error"
	}

	c.AbortWithStatusJSON(status, Response{Error: message})
}

// accessToken reads the caller's token from X-Access-Token or a bearer Authorization header.
func accessToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(accessTokenHeader)); token != "" {
		return token
	}
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}
