package settings

import "errors"

var (
	ErrNotInitialized = errors.New("company settings not initialized")
	ErrInvalid        = errors.New("invalid company settings")
)
