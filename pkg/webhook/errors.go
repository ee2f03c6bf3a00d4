package webhook

import "errors"

var (
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrUnsupportedSource = errors.New("unsupported webhook source")
	ErrNotExternal       = errors.New("envelope has no external reference")
)
