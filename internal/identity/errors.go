package identity

import "errors"

var (
	ErrStorageUnavailable = errors.New("credential storage unavailable")
	ErrProfileUnavailable = errors.New("profile unavailable")
	ErrRedirectLoop       = errors.New("destination is the current page")
)
