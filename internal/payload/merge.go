package payload

import "fmt"

// MergePolicy governs how an incoming payload folds into an event that
// already carries one.
type MergePolicy uint8

const (
	// MergeYes merges per the variant rules (the default).
	MergeYes MergePolicy = iota
	// MergeNo discards the incoming payload.
	MergeNo
	// MergeOverwrite replaces the event's payload wholesale.
	MergeOverwrite
)

func (p MergePolicy) String() string {
	switch p {
	case MergeYes:
		return "yes"
	case MergeNo:
		return "no"
	case MergeOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParseMergePolicy maps a config token to a policy. Bare yes/no resolve as
// booleans under YAML 1.1 rules, so true/false are accepted too.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "yes", "true":
		return MergeYes, nil
	case "no", "false":
		return MergeNo, nil
	case "overwrite":
		return MergeOverwrite, nil
	default:
		return MergeYes, fmt.Errorf("unknown merge policy %q", s)
	}
}

// Merge folds b into d and returns the result. Neither input is mutated.
//
// Rules:
//   - empty + x, x + empty: the non-empty side
//   - structured + structured: deep object merge when both are objects
//     (a null value in b deletes the key), otherwise b replaces
//   - string + string: concatenation
//   - bytes + string: append the string's bytes
//   - bytes + bytes: append
//   - any other pairing: b replaces d
func (d Data) Merge(b Data) Data {
	switch {
	case d.kind == KindEmpty:
		return b.Clone()
	case b.kind == KindEmpty:
		return d.Clone()
	case d.kind == KindStructured && b.kind == KindStructured:
		return NewStructured(mergeTrees(d.tree, b.tree))
	case d.kind == KindString && b.kind == KindString:
		return NewString(d.str + b.str)
	case d.kind == KindBytes && b.kind == KindString:
		out := append(append([]byte(nil), d.raw...), b.str...)
		return NewBytes(out)
	case d.kind == KindBytes && b.kind == KindBytes:
		out := append(append([]byte(nil), d.raw...), b.raw...)
		return NewBytes(out)
	default:
		return b.Clone()
	}
}

// MergeWith applies the policy: yes merges, no keeps d, overwrite takes b.
func (d Data) MergeWith(b Data, p MergePolicy) Data {
	switch p {
	case MergeNo:
		return d.Clone()
	case MergeOverwrite:
		return b.Clone()
	default:
		return d.Merge(b)
	}
}

// TryMergeBytes decodes raw (JSON, then UTF-8 string, then bytes) and
// merges the result into d.
func (d Data) TryMergeBytes(raw []byte) Data {
	return d.Merge(Decode(raw))
}

// mergeTrees merges two structured trees. Only object pairs merge deeply;
// any other pairing means b wins.
func mergeTrees(a, b any) any {
	am, aOK := a.(map[string]any)
	bm, bOK := b.(map[string]any)
	if !aOK || !bOK {
		return copyTree(b)
	}
	out := make(map[string]any, len(am)+len(bm))
	for k, v := range am {
		out[k] = copyTree(v)
	}
	for k, v := range bm {
		if v == nil {
			delete(out, k)
			continue
		}
		if cur, ok := out[k]; ok {
			out[k] = mergeTrees(cur, v)
			continue
		}
		out[k] = copyTree(v)
	}
	return out
}
