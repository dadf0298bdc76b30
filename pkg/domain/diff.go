package domain

// Diff returns, for every key whose value differs between before and after, the delta after-before.
// Keys present on only one side are compared against 0.
// It returns nil when nothing changed.
func Diff(before, after State) State {
	delta := make(State)

	for k, v := range after {
		if d := v - before.Get(k); d != 0 {
			delta[k] = d
		}
	}
	for k, v := range before {
		if _, ok := after[k]; !ok && v != 0 {
			delta[k] = -v
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}
