package sanitize

import (
	"encoding/json"
	"fmt"
)

// ValidateStructure recursively validates a JSON-shaped value against the
// configured depth and size limits, re-validating every string leaf and
// object key through SanitizeString. depth is the current nesting level;
// callers pass 0.
func (s *Sanitizer) ValidateStructure(value any, depth int) Result {
	_, res := s.sanitizeValue(value, depth)
	return res
}

// SanitizeValue validates a JSON-shaped argument payload and returns a copy
// with every string leaf passed through SanitizeString. The Result is the
// aggregate outcome: Invalid on the first rejection, Sanitized if any leaf
// was rewritten, Valid otherwise.
func (s *Sanitizer) SanitizeValue(value any) (any, Result) {
	return s.sanitizeValue(value, 0)
}

func (s *Sanitizer) sanitizeValue(value any, depth int) (any, Result) {
	if depth > s.cfg.MaxDepth {
		return nil, invalid("", CodeStructureTooDeep,
			fmt.Sprintf("structure exceeds maximum nesting depth of %d", s.cfg.MaxDepth))
	}

	switch v := value.(type) {
	case nil, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return v, Result{Status: StatusValid}

	case string:
		res := s.SanitizeString(v)
		if res.Status == StatusInvalid {
			return nil, res
		}
		return res.Value(), res

	case map[string]any:
		if len(v) > s.cfg.MaxProperties {
			return nil, invalid("", CodeStructureTooLarge,
				fmt.Sprintf("object exceeds maximum of %d properties", s.cfg.MaxProperties))
		}
		out := make(map[string]any, len(v))
		aggregate := StatusValid
		for key, child := range v {
			keyRes := s.SanitizeString(key)
			if keyRes.Status == StatusInvalid {
				keyRes.Reason = fmt.Sprintf("object key %q: %s", key, keyRes.Reason)
				return nil, keyRes
			}
			childValue, childRes := s.sanitizeValue(child, depth+1)
			if childRes.Status == StatusInvalid {
				return nil, childRes
			}
			if keyRes.Status == StatusSanitized || childRes.Status == StatusSanitized {
				aggregate = StatusSanitized
			}
			out[keyRes.Value()] = childValue
		}
		return out, Result{Status: aggregate}

	case []any:
		if len(v) > s.cfg.MaxArrayLength {
			return nil, invalid("", CodeStructureTooLarge,
				fmt.Sprintf("array exceeds maximum length of %d", s.cfg.MaxArrayLength))
		}
		out := make([]any, len(v))
		aggregate := StatusValid
		for i, child := range v {
			childValue, childRes := s.sanitizeValue(child, depth+1)
			if childRes.Status == StatusInvalid {
				return nil, childRes
			}
			if childRes.Status == StatusSanitized {
				aggregate = StatusSanitized
			}
			out[i] = childValue
		}
		return out, Result{Status: aggregate}

	default:
		return nil, invalid(fmt.Sprintf("%T", value), CodeUnsupportedType,
			fmt.Sprintf("value of type %T is not representable", value))
	}
}

// ValidateIPCInput is the composed entry point for a full IPC call payload:
// it validates the command name, then sanitizes the argument structure. The
// first failure short-circuits. On success the returned value is the
// sanitized argument payload to pass downstream.
func (s *Sanitizer) ValidateIPCInput(command string, args any) (any, Result) {
	if res := s.ValidateCommandName(command); res.Status == StatusInvalid {
		return nil, res
	}
	return s.SanitizeValue(args)
}
