package sanitize

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ValidateURL accepts a URL only if it parses and its scheme is on the
// allow-list (default http and https). Everything else is rejected: opaque
// schemes such as javascript: and data: are how script payloads smuggle
// through URL-shaped fields.
func (s *Sanitizer) ValidateURL(raw string) Result {
	if len(raw) > s.cfg.MaxStringLength {
		return invalid(raw, CodeStringTooLong, "url exceeds maximum length")
	}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return invalid(raw, CodeURLMalformed, "url does not parse")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return invalid(raw, CodeURLMalformed, "url has no scheme")
	}
	if _, ok := s.schemes[scheme]; !ok {
		return invalid(raw, CodeURLSchemeDenied, "url scheme is not allowed")
	}
	if parsed.Host == "" {
		return invalid(raw, CodeURLMalformed, "url has no host")
	}
	return valid(raw)
}

// ValidateFilePath rejects traversal markers, absolute paths outside the
// configured base directories, and executable or script extensions.
func (s *Sanitizer) ValidateFilePath(path string) Result {
	if path == "" {
		return invalid(path, CodePathTraversal, "path is empty")
	}
	if len(path) > s.cfg.MaxStringLength {
		return invalid(path, CodeStringTooLong, "path exceeds maximum length")
	}
	if strings.Contains(path, "..") || strings.Contains(path, "~") {
		return invalid(path, CodePathTraversal, "path contains a traversal marker")
	}
	if strings.ContainsRune(path, 0) {
		return invalid(path, CodeInvalidCharacters, "path contains a NUL byte")
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != "" {
		if _, blocked := s.extensions[ext]; blocked {
			return invalid(path, CodeBlockedExtension, "path has a blocked file extension")
		}
	}

	if filepath.IsAbs(path) {
		cleaned := filepath.Clean(path)
		allowed := false
		for _, base := range s.cfg.AllowedPathBases {
			base = filepath.Clean(base)
			if cleaned == base || strings.HasPrefix(cleaned, base+string(filepath.Separator)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return invalid(path, CodePathOutsideBase, "absolute path is outside the allowed directories")
		}
	}
	return valid(path)
}
