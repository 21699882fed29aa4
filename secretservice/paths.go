package secretservice

import (
	"fmt"
	"strings"

	"github.com/ruteri/secret-service/interfaces"
)

// Object path namespaces of the org.freedesktop.Secret API.
const (
	ServicePath      interfaces.ObjectPath = "/org/freedesktop/secrets"
	SessionPrefix    interfaces.ObjectPath = "/org/freedesktop/secrets/sessions/"
	PromptPrefix     interfaces.ObjectPath = "/org/freedesktop/secrets/prompts/"
	CollectionPrefix interfaces.ObjectPath = "/org/freedesktop/secrets/collection/"
)

func sessionPath(id uint64) interfaces.ObjectPath {
	return interfaces.ObjectPath(fmt.Sprintf("%s%d", SessionPrefix, id))
}

func promptPath(id uint64) interfaces.ObjectPath {
	return interfaces.ObjectPath(fmt.Sprintf("%sp%d", PromptPrefix, id))
}

func namedPromptPath(name string) interfaces.ObjectPath {
	return PromptPrefix + interfaces.ObjectPath(name)
}

func collectionPath(id string) interfaces.ObjectPath {
	return CollectionPrefix + interfaces.ObjectPath(id)
}

func itemPath(collection interfaces.ObjectPath, id string) interfaces.ObjectPath {
	return collection + "/" + interfaces.ObjectPath(id)
}

// ValidIdentifier reports whether id can be used as a single object path element:
// non-empty and made of [A-Za-z0-9_] only.
func ValidIdentifier(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// SanitizeIdentifier maps an arbitrary string to a valid path element by replacing
// every disallowed rune with '_'. An empty input yields "_".
func SanitizeIdentifier(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
