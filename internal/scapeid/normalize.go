package scapeid

import "strings"

// Normalize canonicalizes scape names and their common aliases. Unknown
// names come back lowercased and dash-separated.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	candidate := strings.Trim(strings.TrimPrefix(normalized, "scape-"), "-")
	if canonical, ok := canonicalScapeName(candidate); ok {
		return canonical
	}
	return normalized
}

func canonicalScapeName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "parity", "evenparity", "even", "parity3":
		return "parity", true
	case "xor":
		return "xor", true
	case "adder", "onehotadder", "sum", "add":
		return "adder", true
	default:
		return "", false
	}
}
