package domain

import (
	"encoding/json"
	"sort"
)

// State maps metric keys to their current value.
// Keys are not required to be exhaustive; absent keys read as 0.
type State map[string]float64

// Get returns the value for key, or 0 if the key is absent.
func (s State) Get(key string) float64 {
	return s[key]
}

// Clone returns an independent copy of the state.
// A nil state clones to an empty, non-nil state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the keys of the state in lexical order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Effects is a partial mapping of metric key to a signed delta.
type Effects map[string]float64

// UnmarshalJSON skips null entries, so an undefined delta is never turned into a 0-valued key.
func (e *Effects) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*e = nil
		return nil
	}
	out := make(Effects, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[k] = *v
	}
	*e = out
	return nil
}
