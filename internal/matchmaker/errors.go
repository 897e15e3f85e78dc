package matchmaker

import "errors"

var (
	ErrNotFound        = errors.New("no saved persona found")
	ErrContactsPrivate = errors.New("this user prefers not to share contact info publicly")
	ErrInvalidToken    = errors.New("missing or malformed access token")
	ErrInvalidRequest  = errors.New("invalid request")
)
