package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	ErrCapabilityUnavailable = errors.New("language model capability unavailable")
	ErrSessionCreation       = errors.New("session creation failed")
	ErrClone                 = errors.New("session clone failed")
	ErrPrompt                = errors.New("prompt call failed")
	ErrAllRetriesExhausted   = errors.New("all retries exhausted")
	ErrStructuralFailure     = errors.New("structural analysis failure")
)
