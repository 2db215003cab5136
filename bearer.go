package rotauth

import "strings"

const bearerPrefix = "bearer "

// ParseBearer extracts a token from an Authorization header value. Surrounding
// whitespace is trimmed and a case-insensitive "Bearer " prefix is removed when present,
// so a raw token is accepted as well. An empty result yields ErrTokenMissing.
func ParseBearer(value string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) >= len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		value = strings.TrimSpace(value[len(bearerPrefix):])
	}
	if value == "" || strings.EqualFold(value, "bearer") {
		return "", ErrTokenMissing
	}
	return value, nil
}
