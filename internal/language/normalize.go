// Package language normalizes BCP 47 style language tags.
package language

import "strings"

// NormalizeTag lowercases raw and joins its subtags with "-". It returns "" for blank
// input or when any subtag holds something other than ASCII letters.
func NormalizeTag(raw string) string {
	cleaned := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-")
	if cleaned == "" {
		return ""
	}

	subtags := strings.FieldsFunc(cleaned, func(r rune) bool { return r == '-' })
	for _, subtag := range subtags {
		if !lettersOnly(subtag) {
			return ""
		}
	}
	return strings.Join(subtags, "-")
}

// NormalizeCode returns the primary subtag of raw, e.g. "en" for "en-US".
func NormalizeCode(raw string) string {
	primary, _, _ := strings.Cut(NormalizeTag(raw), "-")
	return primary
}

// AcceptLanguage builds an Accept-Language header value that prefers the tag and falls
// back to its primary language.
func AcceptLanguage(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return "en-US,en;q=0.8"
	}
	code := NormalizeCode(tag)
	if code == tag {
		return tag
	}
	return tag + "," + code + ";q=0.8"
}

func lettersOnly(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < 'a' || value[i] > 'z' {
			return false
		}
	}
	return value != ""
}
