package credstore

import (
	"strings"
	"unicode"
)

// DefaultCollection is used when a caller passes an empty collection name
// and the store was not configured with a different default.
const DefaultCollection = "default"

// NormalizeCollection resolves the collection a request addresses.
// An empty name selects def. Otherwise surrounding whitespace is trimmed
// and the result must be non-empty and free of control characters.
func NormalizeCollection(name, def string) (string, error) {
	if name == "" {
		name = def
	}
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return "", invalidArgument("collection name is empty")
	}
	if hasControl(normalized) {
		return "", invalidArgument("collection name %q contains control characters", normalized)
	}
	return normalized, nil
}

// ValidateKey checks that key can address an entry.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return invalidArgument("key is empty")
	}
	if hasControl(key) {
		return invalidArgument("key %q contains control characters", key)
	}
	return nil
}

// serviceEscaper escapes the characters keyring backends treat as
// separators: Windows credential targets join service and account with
// ':' and pass stores services as directories.
var serviceEscaper = strings.NewReplacer(
	"%", "%25",
	":", "%3A",
	"/", "%2F",
	"\\", "%5C",
)

// ServiceName returns the keyring service name of a collection. Distinct
// collections always map to distinct names that contain neither ':' nor a
// path separator beyond those already in prefix.
func ServiceName(prefix, collection string) string {
	escaped := serviceEscaper.Replace(collection)
	if prefix != "" {
		return prefix + "." + escaped
	}
	switch escaped {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return escaped
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
