package util

// MaskToken deja visible apenas el borde de un secreto para poder
// correlacionar logs sin exponerlo.
func MaskToken(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "…" + s[len(s)-2:]
}
