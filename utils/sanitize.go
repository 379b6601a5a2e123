package utils

import "strings"

// SanitizeName maps an arbitrary texture/material name to a filesystem-safe
// cache key. Distinct inputs may collide after sanitizing; callers that need
// uniqueness should append their own discriminator.
func SanitizeName(name string) string {
	if name == "" {
		return "unnamed"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
