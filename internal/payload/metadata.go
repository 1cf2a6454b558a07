package payload

// Metadata is the structured annotation tree accumulated along a
// transition chain. Sources add entries keyed by the matching event's
// name, e.g. {"sub": {"topic": "t/x", "segments": ["t", "x"]}}.
type Metadata map[string]any

// Merge deep-merges other into a copy of m and returns it. A nil value in
// other deletes the key, matching the structured payload rule.
func (m Metadata) Merge(other Metadata) Metadata {
	if len(other) == 0 {
		return m.Clone()
	}
	merged := mergeTrees(map[string]any(m.Clone()), map[string]any(other))
	out, ok := merged.(map[string]any)
	if !ok {
		return Metadata{}
	}
	return Metadata(out)
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := copyTree(map[string]any(m))
	return Metadata(out.(map[string]any))
}
