package email

import "errors"

var (
	// ErrAuthExpired means the credential must be refreshed by the user.
	ErrAuthExpired = errors.New("gmail authorization expired")

	// ErrProviderUnavailable covers transport failures, rate limits and 5xx responses.
	ErrProviderUnavailable = errors.New("gmail unavailable")

	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrPartialDelete             = errors.New("partial delete failure")
	ErrNoMessages                = errors.New("no messages selected")
	ErrInvalidFilter             = errors.New("invalid filter")
)
