package cache

import (
	"errors"
	"strings"
)

var errKeyRequired = errors.New("key is required")

func normalizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errKeyRequired
	}
	return trimmed, nil
}

// underPrefix reports whether key equals prefix or lies below it as a
// "/"-separated path.
func underPrefix(key string, prefix string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}
