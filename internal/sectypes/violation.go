// Package sectypes holds closed enumerations shared by the authorization
// pipeline components: the violation taxonomy attached to every denial and
// the helpers for mapping violations to audit severity.
package sectypes

// ViolationType classifies why a command request was refused. The set is
// closed; callers switch on it rather than parsing reason strings.
type ViolationType string

const (
	// ViolationNone indicates no violation (the request was allowed).
	ViolationNone ViolationType = ""

	// ViolationUnknownCommand indicates the command name (after alias
	// resolution) is not registered in the whitelist.
	ViolationUnknownCommand ViolationType = "unknown_command"

	// ViolationCommandBlocked indicates the command's classification is
	// Blocked. This is an absolute veto independent of permissions.
	ViolationCommandBlocked ViolationType = "command_blocked"

	// ViolationMaliciousPattern indicates the command or its serialized
	// arguments matched a global attack-signature pattern.
	ViolationMaliciousPattern ViolationType = "malicious_pattern"

	// ViolationInvalidArguments indicates the arguments failed the
	// profile's allowed/blocked argument pattern checks.
	ViolationInvalidArguments ViolationType = "invalid_arguments"

	// ViolationInsufficientPermissions indicates the expanded permission
	// set does not cover the profile's requirements. Resolved as
	// RequiresElevation rather than Denied so callers can prompt.
	ViolationInsufficientPermissions ViolationType = "insufficient_permissions"

	// ViolationMFARequired indicates the profile demands a verified MFA
	// factor the session does not have.
	ViolationMFARequired ViolationType = "mfa_required"

	// ViolationRateLimited indicates the request exceeded its quota.
	ViolationRateLimited ViolationType = "rate_limited"

	// ViolationRateLimitBlocked indicates the key is inside an escalated
	// penalty window after repeated quota violations.
	ViolationRateLimitBlocked ViolationType = "rate_limit_blocked"

	// ViolationInputRejected indicates the sanitizer refused the payload.
	ViolationInputRejected ViolationType = "input_rejected"

	// ViolationSessionInvalid indicates the session is unknown.
	ViolationSessionInvalid ViolationType = "session_invalid"

	// ViolationSessionSuspended indicates the session is suspended after
	// repeated authentication failures.
	ViolationSessionSuspended ViolationType = "session_suspended"

	// ViolationSessionExpired indicates the session has timed out.
	ViolationSessionExpired ViolationType = "session_expired"

	// ViolationInternalError indicates a pipeline dependency failed and
	// the gateway resolved fail-closed.
	ViolationInternalError ViolationType = "internal_error"
)

// String returns the wire representation of the violation type.
func (v ViolationType) String() string {
	return string(v)
}
