package sanitize

// Status is the outcome of a validation or sanitization pass.
type Status int

const (
	// StatusValid means the input passed unchanged.
	StatusValid Status = iota
	// StatusSanitized means the input was accepted after entity encoding
	// altered it; callers must use the Sanitized value, not the original.
	StatusSanitized
	// StatusInvalid means the input was rejected outright.
	StatusInvalid
)

// String returns a string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusSanitized:
		return "sanitized"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Rejection codes. The numbering is part of the audit record format and must
// stay stable across releases.
const (
	CodeStringTooLong     = 1001
	CodeBlockedPattern    = 1002
	CodeInvalidCharacters = 1003
	CodeURLSchemeDenied   = 1004
	CodeURLMalformed      = 1005
	CodePathTraversal     = 1006
	CodePathOutsideBase   = 1007
	CodeBlockedExtension  = 1008
	CodeInvalidCommand    = 1009
	CodeInvalidEmail      = 1010
	CodeNumberOutOfRange  = 1011
	CodeStructureTooDeep  = 1012
	CodeStructureTooLarge = 1013
	CodeSQLKeyword        = 1014
	CodeSQLInjection      = 1015
	CodeUnsupportedType   = 1016
)

// Result reports the outcome of a single validation pass. For StatusInvalid,
// Code and Reason describe the rejection; for StatusSanitized, Sanitized
// carries the encoded replacement for Original.
type Result struct {
	Status    Status
	Original  string
	Sanitized string
	Code      int
	Reason    string
}

// Value returns the string a caller should use: the sanitized form when
// encoding changed the input, otherwise the original.
func (r Result) Value() string {
	if r.Status == StatusSanitized {
		return r.Sanitized
	}
	return r.Original
}

// OK reports whether the input was accepted (valid or sanitized).
func (r Result) OK() bool {
	return r.Status != StatusInvalid
}

func valid(s string) Result {
	return Result{Status: StatusValid, Original: s}
}

func sanitized(original, cleaned string) Result {
	return Result{Status: StatusSanitized, Original: original, Sanitized: cleaned}
}

func invalid(s string, code int, reason string) Result {
	return Result{Status: StatusInvalid, Original: s, Code: code, Reason: reason}
}
