package util

import (
	"regexp"
)

const (
	// MaxSanitizeLength is the maximum input length. Longer input is
	// truncated before the patterns run.
	MaxSanitizeLength = 64 * 1024

	// MaxClientMessageLength caps messages returned to API clients
	MaxClientMessageLength = 512
)

// redactions are applied in order by SanitizeString
var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Connection strings may embed credentials
	{regexp.MustCompile(`(?i)(?:sqlite|redis|rediss|file)://[^\s"']+`), "[CONNECTION]"},

	// JWT tokens (xxx.yyy.zzz) and bearer credentials
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`), "REDACTED_JWT"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]+`), "bearer REDACTED"},

	// key=value and key: value secrets
	{regexp.MustCompile(`(?i)(password|passwd|secret|jwt_secret|token)[\s:=]+[^\s]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)"(password|secret|jwt_secret|token)"\s*:\s*"[^"]+"`), `"$1":"REDACTED"`},

	// Absolute file system paths
	{regexp.MustCompile(`(?:^|\s)(/[^\s:"']+)+`), " [FILE_PATH]"},
}

// SanitizeError sanitizes an error message to remove sensitive information
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString redacts credentials, tokens and file paths from s
func SanitizeString(s string) string {
	if s == "" {
		return ""
	}

	if len(s) > MaxSanitizeLength {
		s = s[:MaxSanitizeLength] + "... [truncated]"
	}

	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// ClientMessage sanitizes s and caps it at MaxClientMessageLength
func ClientMessage(s string) string {
	s = SanitizeString(s)
	if len(s) > MaxClientMessageLength {
		s = s[:MaxClientMessageLength-3] + "..."
	}
	return s
}
