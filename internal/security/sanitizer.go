package security

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlPolicy  = bluemonday.StrictPolicy()
	imageTypeRe = regexp.MustCompile(`jpeg|jpg|png`)
)

// SanitizeString trims whitespace, drops null bytes and caps the length in
// bytes without splitting a UTF-8 sequence.
func SanitizeString(input string, maxLen int) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if maxLen > 0 && len(input) > maxLen {
		cut := maxLen
		for cut > 0 && !isRuneStart(input[cut]) {
			cut--
		}
		input = strings.TrimSpace(input[:cut])
	}
	return input
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// SanitizeHTML removes all HTML tags.
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// ValidateImageUpload accepts jpeg, jpg and png. Both the file extension and
// the declared content type have to agree.
func ValidateImageUpload(filename, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return imageTypeRe.MatchString(ext) && imageTypeRe.MatchString(strings.ToLower(contentType))
}

// ValidateFileSize checks if file size is within limit
func ValidateFileSize(size int64, maxSize int64) bool {
	return size > 0 && size <= maxSize
}
