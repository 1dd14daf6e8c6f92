// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// Source identifies how an expense reached the system.
type Source string

// Supported signal sources.
const (
	SourceReceipt Source = "receipt"
	SourceVoice   Source = "voice"
)

// ParseSource validates a textual source tag.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceReceipt, SourceVoice:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown source %q (want receipt or voice)", s)
	}
}

// Valid reports whether s is a supported source.
func (s Source) Valid() bool {
	return s == SourceReceipt || s == SourceVoice
}
