package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// sqlKeywordList is the keyword blacklist for SQL-shaped inputs. Matching is
// case-insensitive on word boundaries; comment markers and stored-procedure
// prefixes are matched as substrings.
var sqlKeywordList = []string{
	"select", "insert", "update", "delete", "drop", "truncate",
	"alter", "create", "union", "exec", "execute", "grant", "revoke",
}

// sqlCommentMarkers are rejected anywhere in the input.
var sqlCommentMarkers = []string{"--", "/*", "*/", ";--", "xp_", "sp_"}

// sqlInjectionDefs are injection-shaped patterns evaluated case-insensitively.
var sqlInjectionDefs = []string{
	`(?i)'\s*or\s+\d+\s*=\s*\d+`,
	`(?i)'\s*or\s*'[^']*'\s*=\s*'`,
	`(?i)"\s*or\s*"[^"]*"\s*=\s*"`,
	`'\s*;`,
	`(?i)\bor\s+1\s*=\s*1\b`,
	`(?i)\bunion\b[\s\S]*\bselect\b`,
	`(?i)\bwaitfor\s+delay\b`,
	`(?i)\bsleep\s*\(`,
	`(?i)\bbenchmark\s*\(`,
}

var sqlWordPattern = regexp.MustCompile(`[a-zA-Z_]+`)

// SanitizeSQLInput rejects inputs carrying SQL keywords (code 1014) or
// injection-shaped fragments (code 1015). It never rewrites the input:
// SQL-shaped content has no legitimate place in these payloads, so it is
// refused rather than escaped.
func (s *Sanitizer) SanitizeSQLInput(input string) Result {
	if len(input) > s.cfg.MaxStringLength {
		return invalid(input, CodeStringTooLong, "input exceeds maximum length")
	}

	lowered := strings.ToLower(input)
	for _, marker := range sqlCommentMarkers {
		if strings.Contains(lowered, marker) {
			return invalid(input, CodeSQLKeyword,
				fmt.Sprintf("input contains SQL marker %q", marker))
		}
	}
	for _, word := range sqlWordPattern.FindAllString(lowered, -1) {
		for _, keyword := range s.sqlKeywords {
			if word == keyword {
				return invalid(input, CodeSQLKeyword,
					fmt.Sprintf("input contains SQL keyword %q", keyword))
			}
		}
	}
	for _, re := range s.sqlPatterns {
		if re.MatchString(input) {
			return invalid(input, CodeSQLInjection, "input matches a SQL injection pattern")
		}
	}
	return valid(input)
}
