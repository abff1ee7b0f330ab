package handler

import (
	"net/http"

	"matchlink/backend/internal/chatlink"
	"matchlink/backend/internal/localization"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Kind       string `json:"kind"`
	MessageKey string `json:"message_key"`
	Message    string `json:"message"`
	MatchID    string `json:"match_id,omitempty"`
	AbortCode  *int   `json:"abort_code,omitempty"`
}

func statusFor(kind chatlink.ErrorKind) int {
	switch kind {
	case chatlink.KindNotFound:
		return http.StatusNotFound
	case chatlink.KindContractAbort:
		return http.StatusConflict
	case chatlink.KindUnauthorized:
		return http.StatusForbidden
	case chatlink.KindInactiveMatch:
		return http.StatusUnprocessableEntity
	case chatlink.KindNetwork:
		return http.StatusBadGateway
	case chatlink.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	e := chatlink.Describe(err)
	status := statusFor(e.Kind)

	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("kind", string(e.Kind)).Str("match_id", e.MatchID).
		Str("path", c.FullPath()).Msg("request failed")

	body := ErrorBody{
		Kind:       string(e.Kind),
		MessageKey: e.MessageKey,
		Message:    h.message(c, e.MessageKey),
		MatchID:    e.MatchID,
	}
	if e.AbortCode >= 0 {
		code := e.AbortCode
		body.AbortCode = &code
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func (h *Handler) message(c *gin.Context, key string) string {
	if h.Localizer == nil {
		return key
	}
	lang := h.Localizer.Language(c.GetHeader("Accept-Language"))
	if lang == "" {
		lang = localization.DefaultLanguage
	}
	return h.Localizer.GetString(lang, key)
}
