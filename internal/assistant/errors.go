package assistant

import "errors"

var (
	// ErrIncorrectToken indicates a blank API secret or platform token.
	ErrIncorrectToken = errors.New("incorrect token")
	// ErrIncorrectProxyServerURL indicates the relay address is not an absolute http(s) URL.
	ErrIncorrectProxyServerURL = errors.New("incorrect proxy server url")
	// ErrIncorrectMessageCount indicates fewer messages fit the budget than the configured minimum.
	ErrIncorrectMessageCount = errors.New("incorrect message count")
)
