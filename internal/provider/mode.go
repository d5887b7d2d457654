package provider

import (
	"fmt"
	"strings"
)

// Mode selects between the rich and fallback variant of a capability.
type Mode int

const (
	// ModeAuto uses the rich variant when its credential is present.
	ModeAuto Mode = iota
	// ModeRich requests the rich variant; construction failure still falls back.
	ModeRich
	// ModeFallback always uses the deterministic variant.
	ModeFallback
)

func (m Mode) String() string {
	switch m {
	case ModeRich:
		return "rich"
	case ModeFallback:
		return "fallback"
	default:
		return "auto"
	}
}

// ParseMode parses auto, rich or fallback (case-insensitive, empty means auto).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "rich":
		return ModeRich, nil
	case "fallback":
		return ModeFallback, nil
	}
	return ModeAuto, fmt.Errorf("%w: unknown mode %q", ErrInvalidMode, s)
}

// Wants reports whether the rich variant should be attempted given whether
// its credential is present.
func (m Mode) Wants(hasCredential bool) bool {
	switch m {
	case ModeRich:
		return true
	case ModeFallback:
		return false
	default:
		return hasCredential
	}
}
