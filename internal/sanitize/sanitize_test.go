package sanitize_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianapp/ipcguard/internal/sanitize"
)

func newSanitizer(t *testing.T) *sanitize.Sanitizer {
	t.Helper()
	s, err := sanitize.New(nil)
	require.NoError(t, err)
	return s
}

func TestSanitizeString(t *testing.T) {
	s := newSanitizer(t)

	t.Run("plain text is valid", func(t *testing.T) {
		res := s.SanitizeString("hello world")
		assert.Equal(t, sanitize.StatusValid, res.Status)
		assert.Equal(t, "hello world", res.Value())
	})

	t.Run("script tag is blocked before encoding", func(t *testing.T) {
		res := s.SanitizeString("<script>alert(1)</script>")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeBlockedPattern, res.Code)
	})

	t.Run("length bound takes precedence", func(t *testing.T) {
		res := s.SanitizeString(strings.Repeat("a", 10001) + "<script>")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeStringTooLong, res.Code)
	})

	t.Run("control characters are rejected", func(t *testing.T) {
		res := s.SanitizeString("hello\x00world")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeInvalidCharacters, res.Code)
	})

	t.Run("non-ascii is rejected", func(t *testing.T) {
		res := s.SanitizeString("héllo")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeInvalidCharacters, res.Code)
	})

	t.Run("special characters are entity encoded", func(t *testing.T) {
		res := s.SanitizeString(`a "quoted" value`)
		assert.Equal(t, sanitize.StatusSanitized, res.Status)
		assert.Equal(t, "a &quot;quoted&quot; value", res.Value())
		assert.Equal(t, `a "quoted" value`, res.Original)
	})

	t.Run("attack signatures", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"javascript url", "javascript:alert(1)"},
			{"eval call", "eval(document.cookie)"},
			{"timer constructor", "setTimeout(steal, 10)"},
			{"path traversal", "../../secret"},
			{"destructive shell", "x; rm -rf / --no-preserve-root"},
			{"event handler", `x" onerror=alert(1)`},
			{"data url", "data:text/html,<h1>x</h1>"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res := s.SanitizeString(tt.input)
				assert.Equal(t, sanitize.StatusInvalid, res.Status)
				assert.Equal(t, sanitize.CodeBlockedPattern, res.Code)
			})
		}
	})
}

func TestValidateCommandName(t *testing.T) {
	s := newSanitizer(t)

	tests := []struct {
		name    string
		command string
		ok      bool
	}{
		{"simple name", "save_settings", true},
		{"dotted name", "container.start", true},
		{"dashed name", "export-logs", true},
		{"empty", "", false},
		{"leading digit", "1settings", false},
		{"shell fragment", "save; rm -rf /", false},
		{"spaces", "save settings", false},
		{"too long", strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.ValidateCommandName(tt.command)
			if tt.ok {
				assert.Equal(t, sanitize.StatusValid, res.Status)
			} else {
				assert.Equal(t, sanitize.StatusInvalid, res.Status)
				assert.Equal(t, sanitize.CodeInvalidCommand, res.Code)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	s := newSanitizer(t)

	t.Run("https is allowed", func(t *testing.T) {
		assert.Equal(t, sanitize.StatusValid, s.ValidateURL("https://example.com/page").Status)
	})

	t.Run("javascript scheme is denied", func(t *testing.T) {
		res := s.ValidateURL("javascript:alert(1)")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeURLSchemeDenied, res.Code)
	})

	t.Run("file scheme is denied", func(t *testing.T) {
		res := s.ValidateURL("file:///etc/passwd")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeURLSchemeDenied, res.Code)
	})

	t.Run("schemeless url is malformed", func(t *testing.T) {
		res := s.ValidateURL("example.com/page")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeURLMalformed, res.Code)
	})
}

func TestValidateFilePath(t *testing.T) {
	s, err := sanitize.New(&sanitize.Config{
		AllowedPathBases: []string{"/var/app/data"},
	})
	require.NoError(t, err)

	t.Run("traversal is rejected", func(t *testing.T) {
		res := s.ValidateFilePath("../../../etc/passwd")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodePathTraversal, res.Code)
	})

	t.Run("home marker is rejected", func(t *testing.T) {
		res := s.ValidateFilePath("~/.ssh/id_rsa")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodePathTraversal, res.Code)
	})

	t.Run("absolute path inside base is allowed", func(t *testing.T) {
		res := s.ValidateFilePath("/var/app/data/export.json")
		assert.Equal(t, sanitize.StatusValid, res.Status)
	})

	t.Run("absolute path outside base is rejected", func(t *testing.T) {
		res := s.ValidateFilePath("/etc/shadow")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodePathOutsideBase, res.Code)
	})

	t.Run("executable extension is rejected", func(t *testing.T) {
		res := s.ValidateFilePath("tools/install.sh")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeBlockedExtension, res.Code)
	})

	t.Run("relative document path is allowed", func(t *testing.T) {
		res := s.ValidateFilePath("reports/2026/summary.txt")
		assert.Equal(t, sanitize.StatusValid, res.Status)
	})
}

func TestSanitizeSQLInput(t *testing.T) {
	s := newSanitizer(t)

	t.Run("drop table is rejected", func(t *testing.T) {
		res := s.SanitizeSQLInput("'; DROP TABLE users; --")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Contains(t, []int{sanitize.CodeSQLKeyword, sanitize.CodeSQLInjection}, res.Code)
	})

	t.Run("tautology is rejected", func(t *testing.T) {
		res := s.SanitizeSQLInput("name' OR 1=1")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeSQLInjection, res.Code)
	})

	t.Run("union select is rejected case-insensitively", func(t *testing.T) {
		res := s.SanitizeSQLInput("x UnIoN SeLeCt password FROM users")
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
	})

	t.Run("keyword inside a word does not trip", func(t *testing.T) {
		res := s.SanitizeSQLInput("newsletter subscription")
		assert.Equal(t, sanitize.StatusValid, res.Status)
	})

	t.Run("plain value passes", func(t *testing.T) {
		res := s.SanitizeSQLInput("Jane Smith")
		assert.Equal(t, sanitize.StatusValid, res.Status)
	})
}

func TestValidateNumber(t *testing.T) {
	s := newSanitizer(t)
	low, high := 0.0, 100.0

	assert.Equal(t, sanitize.StatusValid, s.ValidateNumber(50, &low, &high).Status)
	assert.Equal(t, sanitize.StatusValid, s.ValidateNumber(-5, nil, &high).Status)

	res := s.ValidateNumber(150, &low, &high)
	assert.Equal(t, sanitize.StatusInvalid, res.Status)
	assert.Equal(t, sanitize.CodeNumberOutOfRange, res.Code)
}

func TestValidateEmail(t *testing.T) {
	s := newSanitizer(t)

	assert.Equal(t, sanitize.StatusValid, s.ValidateEmail("user@example.com").Status)

	for _, bad := range []string{"not-an-email", "a@b", "user@", "@example.com"} {
		res := s.ValidateEmail(bad)
		assert.Equal(t, sanitize.StatusInvalid, res.Status, "input %q", bad)
		assert.Equal(t, sanitize.CodeInvalidEmail, res.Code)
	}
}

func TestSanitizeValue(t *testing.T) {
	s := newSanitizer(t)

	t.Run("clean structure passes unchanged", func(t *testing.T) {
		args := map[string]any{
			"theme": "dark",
			"count": float64(3),
			"tags":  []any{"a", "b"},
		}
		out, res := s.SanitizeValue(args)
		require.Equal(t, sanitize.StatusValid, res.Status)
		assert.Equal(t, args, out)
	})

	t.Run("string leaves are sanitized", func(t *testing.T) {
		out, res := s.SanitizeValue(map[string]any{"note": `say "hi"`})
		require.Equal(t, sanitize.StatusSanitized, res.Status)
		assert.Equal(t, map[string]any{"note": "say &quot;hi&quot;"}, out)
	})

	t.Run("malicious leaf rejects the whole payload", func(t *testing.T) {
		_, res := s.SanitizeValue(map[string]any{"theme": "<script>alert(1)</script>"})
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeBlockedPattern, res.Code)
	})

	t.Run("nesting depth is bounded", func(t *testing.T) {
		var nested any = "leaf"
		for i := 0; i < 12; i++ {
			nested = map[string]any{"next": nested}
		}
		_, res := s.SanitizeValue(nested)
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeStructureTooDeep, res.Code)
	})

	t.Run("oversized arrays are rejected", func(t *testing.T) {
		big := make([]any, 1001)
		for i := range big {
			big[i] = float64(i)
		}
		_, res := s.SanitizeValue(big)
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeStructureTooLarge, res.Code)
	})

	t.Run("object keys are validated", func(t *testing.T) {
		_, res := s.SanitizeValue(map[string]any{"<script>k": "v"})
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
	})

	t.Run("non-json values are rejected with their own code", func(t *testing.T) {
		_, res := s.SanitizeValue(map[string]any{"ch": make(chan int)})
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeUnsupportedType, res.Code)
	})
}

func TestValidateIPCInput(t *testing.T) {
	s := newSanitizer(t)

	t.Run("command name failure short-circuits", func(t *testing.T) {
		_, res := s.ValidateIPCInput("bad command", map[string]any{"k": "v"})
		assert.Equal(t, sanitize.StatusInvalid, res.Status)
		assert.Equal(t, sanitize.CodeInvalidCommand, res.Code)
	})

	t.Run("valid call returns sanitized args", func(t *testing.T) {
		out, res := s.ValidateIPCInput("save_settings", map[string]any{"theme": "dark"})
		require.True(t, res.OK())
		assert.Equal(t, map[string]any{"theme": "dark"}, out)
	})
}
