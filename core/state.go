package core

import "fmt"

// State is the open-ended mapping threaded through a run. Tools read and
// write keys by convention; no schema is enforced.
type State map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil State.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge copies every key of update into s, overwriting existing keys.
// Nested values are not merged.
func (s State) Merge(update State) {
	for k, v := range update {
		s[k] = v
	}
}

// String returns the string stored under key. A missing or nil key yields "".
func (s State) String(key string) (string, error) {
	raw, ok := s[key]
	if !ok || raw == nil {
		return "", nil
	}
	str, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrInvalidState, key, raw)
	}
	return str, nil
}
