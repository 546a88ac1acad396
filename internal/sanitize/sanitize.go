// Package sanitize validates and normalizes raw argument payloads crossing
// the IPC boundary. It applies, in order: a length bound, an attack-signature
// scan, a character-class check, and an entity-encoding pass. Specialized
// validators cover URLs, file paths, SQL-shaped strings, email addresses,
// numbers, and nested JSON-like structures.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Default limits applied when Config leaves the corresponding field zero.
const (
	DefaultMaxStringLength = 10000
	DefaultMaxDepth        = 10
	DefaultMaxProperties   = 100
	DefaultMaxArrayLength  = 1000
	maxCommandNameLength   = 128
	maxEmailLength         = 254
)

// blockedPatternDefs are the attack signatures rejected before any encoding
// is applied. Matching is done on the raw input so encoded payloads cannot
// mask a signature.
var blockedPatternDefs = []string{
	`(?i)<\s*script`,
	`(?i)<\s*/\s*script`,
	`(?i)javascript\s*:`,
	`(?i)vbscript\s*:`,
	`(?i)data\s*:\s*text/html`,
	`(?i)\beval\s*\(`,
	`\bFunction\s*\(`,
	`(?i)\bset(?:Timeout|Interval)\s*\(`,
	`(?i)\bon(?:error|load|click|focus|blur|mouse[a-z]+|key[a-z]+)\s*=`,
	`\.\./`,
	`\.\.\\`,
	`(?i)rm\s+-rf\s+/`,
	`(?i)mkfs(\.|\s)`,
	`(?i)dd\s+if=`,
	`[;&|]\s*(?i:rm|del|format)\b`,
}

var commandNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.:-]*$`)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// entityReplacer encodes the special characters that survive the blocked
// pattern and character-class checks.
var entityReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
)

// Config controls the sanitizer limits. Zero values fall back to defaults;
// a nil Config selects DefaultConfig.
type Config struct {
	// MaxStringLength bounds every string input (code 1001 beyond it).
	MaxStringLength int
	// MaxDepth bounds structure nesting for ValidateStructure.
	MaxDepth int
	// MaxProperties bounds object property counts.
	MaxProperties int
	// MaxArrayLength bounds array lengths.
	MaxArrayLength int
	// AllowedURLSchemes lists acceptable URL schemes (default http, https).
	AllowedURLSchemes []string
	// AllowedPathBases lists base directories absolute paths may live in.
	// An empty list rejects every absolute path.
	AllowedPathBases []string
	// BlockedExtensions lists file extensions rejected by ValidateFilePath.
	BlockedExtensions []string
}

// DefaultConfig returns the sanitizer limits used when none are configured.
func DefaultConfig() *Config {
	return &Config{
		MaxStringLength:   DefaultMaxStringLength,
		MaxDepth:          DefaultMaxDepth,
		MaxProperties:     DefaultMaxProperties,
		MaxArrayLength:    DefaultMaxArrayLength,
		AllowedURLSchemes: []string{"http", "https"},
		AllowedPathBases:  nil,
		BlockedExtensions: []string{
			".exe", ".bat", ".cmd", ".com", ".scr", ".vbs",
			".sh", ".bash", ".ps1", ".msi", ".jar", ".dll",
		},
	}
}

// Sanitizer validates IPC input payloads. It is safe for concurrent use;
// all state is immutable after construction.
type Sanitizer struct {
	cfg             Config
	blockedPatterns []*regexp.Regexp
	sqlKeywords     []string
	sqlPatterns     []*regexp.Regexp
	schemes         map[string]struct{}
	extensions      map[string]struct{}
}

// New creates a Sanitizer from the given configuration. A nil config selects
// DefaultConfig. Returns an error if a configured pattern cannot compile.
func New(cfg *Config) (*Sanitizer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	resolved := *cfg
	if resolved.MaxStringLength <= 0 {
		resolved.MaxStringLength = DefaultMaxStringLength
	}
	if resolved.MaxDepth <= 0 {
		resolved.MaxDepth = DefaultMaxDepth
	}
	if resolved.MaxProperties <= 0 {
		resolved.MaxProperties = DefaultMaxProperties
	}
	if resolved.MaxArrayLength <= 0 {
		resolved.MaxArrayLength = DefaultMaxArrayLength
	}
	if len(resolved.AllowedURLSchemes) == 0 {
		resolved.AllowedURLSchemes = []string{"http", "https"}
	}

	s := &Sanitizer{
		cfg:        resolved,
		schemes:    make(map[string]struct{}, len(resolved.AllowedURLSchemes)),
		extensions: make(map[string]struct{}, len(resolved.BlockedExtensions)),
	}

	s.blockedPatterns = make([]*regexp.Regexp, len(blockedPatternDefs))
	for i, pattern := range blockedPatternDefs {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: blocked pattern %q: %w", ErrInvalidPattern, pattern, err)
		}
		s.blockedPatterns[i] = re
	}

	s.sqlKeywords = sqlKeywordList
	s.sqlPatterns = make([]*regexp.Regexp, len(sqlInjectionDefs))
	for i, pattern := range sqlInjectionDefs {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: sql pattern %q: %w", ErrInvalidPattern, pattern, err)
		}
		s.sqlPatterns[i] = re
	}

	for _, scheme := range resolved.AllowedURLSchemes {
		s.schemes[strings.ToLower(scheme)] = struct{}{}
	}
	for _, ext := range resolved.BlockedExtensions {
		s.extensions[strings.ToLower(ext)] = struct{}{}
	}
	return s, nil
}

// SanitizeString validates a general-purpose string input. Rules run in
// order of precedence: length bound (1001), blocked-pattern scan (1002),
// character-class check (1003), then entity encoding. Encoding that changes
// the string yields StatusSanitized.
func (s *Sanitizer) SanitizeString(input string) Result {
	if len(input) > s.cfg.MaxStringLength {
		return invalid(input, CodeStringTooLong,
			fmt.Sprintf("input exceeds maximum length of %d", s.cfg.MaxStringLength))
	}
	if idx := s.matchBlocked(input); idx >= 0 {
		return invalid(input, CodeBlockedPattern, "input matches a blocked pattern")
	}
	for _, r := range input {
		if r < 0x20 || r > 0x7e {
			return invalid(input, CodeInvalidCharacters, "input contains non-printable or non-ASCII characters")
		}
	}
	encoded := entityReplacer.Replace(input)
	if encoded != input {
		return sanitized(input, encoded)
	}
	return valid(input)
}

// ValidateCommandName checks that a command identifier is well-formed. It is
// deliberately stricter than SanitizeString: only dotted, dashed, or
// underscored ASCII identifiers are accepted.
func (s *Sanitizer) ValidateCommandName(name string) Result {
	if name == "" || len(name) > maxCommandNameLength {
		return invalid(name, CodeInvalidCommand, "command name must be 1-128 characters")
	}
	if !commandNamePattern.MatchString(name) {
		return invalid(name, CodeInvalidCommand, "command name contains invalid characters")
	}
	return valid(name)
}

// ValidateEmail checks an email address against a conservative pattern.
func (s *Sanitizer) ValidateEmail(address string) Result {
	if len(address) > maxEmailLength {
		return invalid(address, CodeInvalidEmail, "email address too long")
	}
	if !emailPattern.MatchString(address) {
		return invalid(address, CodeInvalidEmail, "malformed email address")
	}
	return valid(address)
}

// ValidateNumber checks a numeric value against optional inclusive bounds.
// A nil bound is unconstrained.
func (s *Sanitizer) ValidateNumber(value float64, minBound, maxBound *float64) Result {
	repr := fmt.Sprintf("%v", value)
	if minBound != nil && value < *minBound {
		return invalid(repr, CodeNumberOutOfRange,
			fmt.Sprintf("value %v below minimum %v", value, *minBound))
	}
	if maxBound != nil && value > *maxBound {
		return invalid(repr, CodeNumberOutOfRange,
			fmt.Sprintf("value %v above maximum %v", value, *maxBound))
	}
	return valid(repr)
}

// matchBlocked returns the index of the first blocked pattern matching the
// input, or -1.
func (s *Sanitizer) matchBlocked(input string) int {
	for i, re := range s.blockedPatterns {
		if re.MatchString(input) {
			return i
		}
	}
	return -1
}
