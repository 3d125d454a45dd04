package validators

import "strings"

// SanitizeString trims input and cuts it to at most maxLen runes. maxLen <= 0
// disables the cut.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(input)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}

// OptionalString trims input and maps blank values to nil.
func OptionalString(input *string) *string {
	if input == nil {
		return nil
	}
	if s := strings.TrimSpace(*input); s != "" {
		return &s
	}
	return nil
}
