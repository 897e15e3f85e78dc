package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured log keys shared across packages.
const (
	FieldProvider    = "ai_provider"
	FieldModel       = "ai_model"
	FieldPersonaID   = "persona_id"
	FieldPersonaName = "persona_name"
	FieldProfileID   = "profile_id"
	FieldToken       = "access_token"
)

// StringFields turns key/value pairs into zap string fields. Keys and values
// are trimmed; pairs with a blank key or value are skipped, as is a trailing
// key without a value.
func StringFields(pairs ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// WithFields attaches fields to l. A nil logger becomes a no-op one.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// AIFields describes the generative backend a log line comes from.
func AIFields(provider, model string) []zap.Field {
	return StringFields(FieldProvider, provider, FieldModel, model)
}

func WithAI(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, AIFields(provider, model)...)
}

// PersonaFields returns the fields identifying a persona.
func PersonaFields(id int, name string) []zap.Field {
	return append([]zap.Field{zap.Int(FieldPersonaID, id)}, StringFields(FieldPersonaName, name)...)
}

// ProfileFields returns the fields identifying a saved buddy profile.
func ProfileFields(id string, personaID int) []zap.Field {
	return append(StringFields(FieldProfileID, id), zap.Int(FieldPersonaID, personaID))
}

// TokenField logs an access token in masked form.
func TokenField(token string) zap.Field {
	return zap.String(FieldToken, MaskToken(token))
}

// MaskToken keeps the first and last four characters of a token.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
