package whitelist

// expandPermissions computes the transitive closure of the held permission
// set through the inheritance hierarchy. The loop unions granted sets until
// a fixpoint so multi-level hierarchies resolve correctly; expansion is
// idempotent by construction.
func (s *registryState) expandPermissions(held []string) map[string]struct{} {
	expanded := make(map[string]struct{}, len(held))
	queue := make([]string, 0, len(held))
	for _, perm := range held {
		if _, seen := expanded[perm]; !seen {
			expanded[perm] = struct{}{}
			queue = append(queue, perm)
		}
	}
	for len(queue) > 0 {
		perm := queue[0]
		queue = queue[1:]
		for _, granted := range s.hierarchy[perm] {
			if _, seen := expanded[granted]; !seen {
				expanded[granted] = struct{}{}
				queue = append(queue, granted)
			}
		}
	}
	return expanded
}

// ExpandPermissions returns the transitive closure of the given permission
// set as a sorted-independent map, for callers outside validation (reports,
// the CLI).
func (r *Registry) ExpandPermissions(held []string) map[string]struct{} {
	return r.snapshot().expandPermissions(held)
}
