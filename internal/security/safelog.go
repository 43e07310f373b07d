package security

import (
	"regexp"
	"strings"
)

// sensitivePatterns contains regex patterns for credentials in free text.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?secret|secret[_-]?key|access[_-]?token|auth[_-]?token|bearer|password)[=:\s]+["']?([^\s"']+)["']?`),
	regexp.MustCompile(`(sk-[A-Za-z0-9_-]{20,})`), // OpenAI keys
}

// MaskSensitive masks credentials embedded in free text such as upstream
// error messages.
func MaskSensitive(input string) string {
	result := input

	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			for _, sep := range []string{"=", ":"} {
				if parts := strings.SplitN(match, sep, 2); len(parts) == 2 {
					return parts[0] + sep + MaskCredential(strings.Trim(parts[1], "\"' "))
				}
			}
			return MaskCredential(match)
		})
	}

	return result
}

// ContainsSensitiveData reports whether text carries something that looks
// like a credential.
func ContainsSensitiveData(text string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// maskedError carries a masked message but keeps the original in its chain.
type maskedError struct {
	msg string
	err error
}

func (e *maskedError) Error() string { return e.msg }
func (e *maskedError) Unwrap() error { return e.err }

// MaskError returns err with credentials masked from its message.
// errors.Is and errors.As still see the original error.
func MaskError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !ContainsSensitiveData(msg) {
		return err
	}
	return &maskedError{msg: MaskSensitive(msg), err: err}
}
