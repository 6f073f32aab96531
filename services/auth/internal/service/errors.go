package service

import "errors"

var (
	ErrValidation          = errors.New("validation")               // 400
	ErrInvalidID           = errors.New("invalid id")               // 400
	ErrInvalidCredentials  = errors.New("invalid credentials")      // 401
	ErrInvalidAccessToken  = errors.New("invalid access token")     // 401
	ErrInvalidRefreshToken = errors.New("invalid refresh token")    // 401
	ErrUserInactive        = errors.New("user inactive")            // 403
	ErrNotFound            = errors.New("not found")                // 404
	ErrConflict            = errors.New("email already registered") // 409
)
