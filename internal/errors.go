package internal

import "errors"

var (
	errUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired means the credential pair could not be refreshed.
	// Local credentials are cleared before it is returned; callers should
	// force a re-login.
	ErrSessionExpired = errors.New("session expired")

	// ErrRelayUnavailable maps the ingress 503: the notify call arrived
	// before the hub was wired up. Safe to retry.
	ErrRelayUnavailable = errors.New("relay not initialized")
)
