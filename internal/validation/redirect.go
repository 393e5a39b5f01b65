package validation

import (
	"net/url"
	"strings"
)

// Redirect whitelist rules:
// - Empty whitelist allows everything (default inseguro, pensado para dev).
// - An entry matches by case-insensitive equality.
// - An entry ending in '*' matches by case-insensitive prefix (prefix = entry
//   sin el '*'). El wildcard es SOLO prefijo, nunca "contains".
//
// Examples: "https://app.example/done" matches itself;
// "https://app.example/*" matches "https://app.example/done?x=1".
func IsWhitelisted(whitelist []string, redirectURL string) bool {
	if len(whitelist) == 0 {
		return true
	}
	for _, entry := range whitelist {
		if strings.EqualFold(entry, redirectURL) {
			return true
		}
		if strings.HasSuffix(entry, "*") {
			prefix := strings.TrimSuffix(entry, "*")
			if len(redirectURL) >= len(prefix) && strings.EqualFold(redirectURL[:len(prefix)], prefix) {
				return true
			}
		}
	}
	return false
}

// ValidRedirect aplica las dos reglas completas para un destino local
// post-autorización: scheme https (o http si el provider lo permite
// explícitamente) + whitelist. URL sin scheme se rechaza, no se corrige.
func ValidRedirect(whitelist []string, redirectURL string, allowHTTP bool) bool {
	if redirectURL == "" {
		return false
	}
	u, err := url.Parse(redirectURL)
	if err != nil || !u.IsAbs() {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if !allowHTTP {
			return false
		}
	default:
		return false
	}
	return IsWhitelisted(whitelist, redirectURL)
}
