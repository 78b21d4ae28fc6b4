package middlewares

import "errors"

// Webhook errors
var (
	ErrWebhookNameEmpty   = errors.New("webhook name cannot be empty")
	ErrMissingPresetOrURL = errors.New("url must be specified")
	ErrWebhookHTTPFailed  = errors.New("webhook HTTP request failed")
)

// Webhook security errors
var (
	ErrInvalidURLScheme = errors.New("URL scheme must be http or https")
	ErrMissingHost      = errors.New("URL must have a host")
	ErrHostNotAllowed   = errors.New("host is not in allowed hosts list")
)
