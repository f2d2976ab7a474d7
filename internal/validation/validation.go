package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateUploadContent rejects uploads the parser should never see: content
// that is not valid UTF-8 or files with more lines than maxLines. Emptiness
// is the ingestion pipeline's concern, not checked here.
func ValidateUploadContent(content string, maxLines int) error {
	if !utf8.ValidString(content) {
		return &ValidationError{
			Field:   "file",
			Message: "must be valid UTF-8 text",
		}
	}

	if maxLines > 0 && strings.Count(content, "\n")+1 > maxLines {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("cannot contain more than %d lines", maxLines),
		}
	}

	return nil
}

// SanitizeString strips control characters (except whitespace) and trims
// surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// SanitizeFilename keeps only the base name characters of an uploaded file
// name, for logging and event payloads.
func SanitizeFilename(name string) string {
	name = SanitizeString(name)
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
