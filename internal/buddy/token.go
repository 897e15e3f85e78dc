package buddy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const tokenPrefix = "bt_"

// NewAccessToken returns an unguessable bearer token for managing a profile.
func NewAccessToken(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%d_%s", tokenPrefix, now.UnixMilli(), random)
}

// LooksLikeAccessToken is a cheap shape check used before hitting storage.
func LooksLikeAccessToken(token string) bool {
	return strings.HasPrefix(token, tokenPrefix) && len(token) > len(tokenPrefix)+32
}

func NewProfileID() string {
	return uuid.NewString()
}
