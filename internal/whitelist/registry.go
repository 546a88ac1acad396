package whitelist

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/meridianapp/ipcguard/internal/sectypes"
)

// Fixed risk scores for denials that have no profile to draw from.
const (
	unknownCommandRisk   = 50
	maliciousPatternRisk = 90
	invalidArgsRiskBump  = 20
	maxRiskScore         = 100
)

// DecisionKind is the closed set of whitelist validation outcomes.
type DecisionKind int

const (
	// DecisionAllowed means the command passed every check.
	DecisionAllowed DecisionKind = iota
	// DecisionDenied means the command is refused outright.
	DecisionDenied
	// DecisionRequiresElevation means the command could pass with more
	// permissions or a verified MFA factor.
	DecisionRequiresElevation
)

// Decision is the outcome of Registry.Validate.
type Decision struct {
	Kind DecisionKind
	// Command is the canonical command name after alias resolution. Empty
	// when the name did not resolve.
	Command string
	// Violation is set for Denied and RequiresElevation outcomes.
	Violation sectypes.ViolationType
	// Reason is a short, non-sensitive explanation.
	Reason string
	// RiskScore is the profile's risk score, or the fixed score attached
	// to the denial kind.
	RiskScore int
	// RequiredPermissions echoes the profile requirements so callers can
	// prompt for elevation.
	RequiredPermissions []string
	// Conditions carries the profile's conditions for a passing result.
	Conditions []string
}

// Registry maps canonical command names to compiled profiles. Lookups take a
// read lock only; Replace swaps the whole state atomically, which is how
// configuration hot reload is implemented.
type Registry struct {
	mu    sync.RWMutex
	state *registryState
}

type registryState struct {
	profiles      map[string]*compiledProfile
	aliases       map[string]string
	hierarchy     map[string][]string
	globalBlocked []*regexp.Regexp
}

// NewRegistry builds a registry from profiles, an alias table, a permission
// inheritance map, and global blocked patterns. All patterns are compiled and
// all aliases resolved here so that validation can never fail on bad
// configuration at request time.
func NewRegistry(profiles []Profile, aliases map[string]string, hierarchy map[string][]string, globalBlocked []string) (*Registry, error) {
	state, err := buildState(profiles, aliases, hierarchy, globalBlocked)
	if err != nil {
		return nil, err
	}
	return &Registry{state: state}, nil
}

func buildState(profiles []Profile, aliases map[string]string, hierarchy map[string][]string, globalBlocked []string) (*registryState, error) {
	state := &registryState{
		profiles:  make(map[string]*compiledProfile, len(profiles)),
		aliases:   make(map[string]string, len(aliases)),
		hierarchy: make(map[string][]string, len(hierarchy)),
	}
	for _, p := range profiles {
		if _, exists := state.profiles[p.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProfile, p.Name)
		}
		cp, err := compileProfile(p)
		if err != nil {
			return nil, err
		}
		state.profiles[p.Name] = cp
	}
	for alias, target := range aliases {
		if _, exists := state.profiles[alias]; exists {
			return nil, fmt.Errorf("%w: alias %q", ErrAliasCollision, alias)
		}
		if _, exists := state.profiles[target]; !exists {
			return nil, fmt.Errorf("%w: alias %q -> %q", ErrDanglingAlias, alias, target)
		}
		state.aliases[alias] = target
	}
	for perm, grants := range hierarchy {
		granted := make([]string, len(grants))
		copy(granted, grants)
		state.hierarchy[perm] = granted
	}
	for _, pattern := range globalBlocked {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: global pattern %q: %w", ErrInvalidPattern, pattern, err)
		}
		state.globalBlocked = append(state.globalBlocked, re)
	}
	return state, nil
}

// Replace atomically swaps the registry contents. In-flight validations
// finish against the old state; new calls see the new one.
func (r *Registry) Replace(profiles []Profile, aliases map[string]string, hierarchy map[string][]string, globalBlocked []string) error {
	state, err := buildState(profiles, aliases, hierarchy, globalBlocked)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
	return nil
}

func (r *Registry) snapshot() *registryState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Resolve maps a command name through the alias table to its canonical name.
// The second return is false when neither an alias nor a profile exists.
func (r *Registry) Resolve(name string) (string, bool) {
	state := r.snapshot()
	if target, ok := state.aliases[name]; ok {
		name = target
	}
	_, ok := state.profiles[name]
	return name, ok
}

// RiskOf returns the risk score of a command (after alias resolution), or
// the unknown-command score when no profile exists. Used by the gateway to
// scale rate limits before full validation runs.
func (r *Registry) RiskOf(name string) int {
	state := r.snapshot()
	if target, ok := state.aliases[name]; ok {
		name = target
	}
	if cp, ok := state.profiles[name]; ok {
		return cp.RiskScore
	}
	return unknownCommandRisk
}

// Profiles returns a copy of all registered profiles, for reporting.
func (r *Registry) Profiles() []Profile {
	state := r.snapshot()
	out := make([]Profile, 0, len(state.profiles))
	for _, cp := range state.profiles {
		out = append(out, cp.Profile)
	}
	return out
}

// Validate decides whether a command with the given arguments may proceed
// for a caller holding userPermissions. The check order is a correctness
// invariant: classification veto first, global pattern scan second,
// permissions third, MFA fourth, argument patterns last. A Blocked
// classification can never be overridden by a permission grant.
func (r *Registry) Validate(command string, args any, userPermissions []string, mfaVerified bool) Decision {
	state := r.snapshot()

	name := command
	if target, ok := state.aliases[name]; ok {
		name = target
	}
	cp, ok := state.profiles[name]
	if !ok {
		return Decision{
			Kind:      DecisionDenied,
			Violation: sectypes.ViolationUnknownCommand,
			Reason:    "command is not registered",
			RiskScore: unknownCommandRisk,
		}
	}

	if cp.Classification == ClassBlocked {
		return Decision{
			Kind:      DecisionDenied,
			Command:   name,
			Violation: sectypes.ViolationCommandBlocked,
			Reason:    "command is blocked",
			RiskScore: cp.RiskScore,
		}
	}

	serialized := serializeArgs(name, args)
	for _, re := range state.globalBlocked {
		if re.MatchString(serialized) {
			return Decision{
				Kind:      DecisionDenied,
				Command:   name,
				Violation: sectypes.ViolationMaliciousPattern,
				Reason:    "request matches a blocked pattern",
				RiskScore: maliciousPatternRisk,
			}
		}
	}

	if len(cp.RequiredPermissions) > 0 {
		expanded := state.expandPermissions(userPermissions)
		for _, required := range cp.RequiredPermissions {
			if _, held := expanded[required]; !held {
				return Decision{
					Kind:                DecisionRequiresElevation,
					Command:             name,
					Violation:           sectypes.ViolationInsufficientPermissions,
					Reason:              "insufficient permissions",
					RiskScore:           cp.RiskScore,
					RequiredPermissions: copyStrings(cp.RequiredPermissions),
				}
			}
		}
	}

	if cp.RequiresMFA && !mfaVerified {
		return Decision{
			Kind:                DecisionRequiresElevation,
			Command:             name,
			Violation:           sectypes.ViolationMFARequired,
			Reason:              "mfa required",
			RiskScore:           cp.RiskScore,
			RequiredPermissions: []string{"mfa.verified"},
		}
	}

	if deny := cp.checkArgPatterns(serialized); deny {
		risk := cp.RiskScore + invalidArgsRiskBump
		if risk > maxRiskScore {
			risk = maxRiskScore
		}
		return Decision{
			Kind:      DecisionDenied,
			Command:   name,
			Violation: sectypes.ViolationInvalidArguments,
			Reason:    "arguments are not acceptable for this command",
			RiskScore: risk,
		}
	}

	return Decision{
		Kind:                DecisionAllowed,
		Command:             name,
		RiskScore:           cp.RiskScore,
		RequiredPermissions: copyStrings(cp.RequiredPermissions),
		Conditions:          copyStrings(cp.Conditions),
	}
}

// checkArgPatterns reports whether the serialized arguments violate the
// profile's pattern constraints.
func (cp *compiledProfile) checkArgPatterns(serialized string) bool {
	for _, re := range cp.blocked {
		if re.MatchString(serialized) {
			return true
		}
	}
	if len(cp.allowed) > 0 {
		for _, re := range cp.allowed {
			if re.MatchString(serialized) {
				return false
			}
		}
		return true
	}
	return false
}

// serializeArgs produces the stable string the pattern scans run against:
// the command name concatenated with the JSON encoding of the arguments.
// encoding/json sorts map keys, so the result is deterministic.
func serializeArgs(command string, args any) string {
	if args == nil {
		return command
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		// Unserializable arguments still get the command name scanned;
		// the sanitizer has already rejected non-JSON-shaped payloads.
		return command
	}
	return command + " " + string(encoded)
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
