package portd

// AddressSetDiff reconciles a desired set of address keys against a current
// keyed set, in a single pass, with a fixed callback order: all removals
// before any additions. This ordering is observable — it guarantees that an
// address swap between two ports in the same cycle never sees both the old
// and new value present simultaneously.
//
// desired may contain duplicates; the first occurrence of a duplicate key
// wins and onDuplicate (if non-nil) is invoked for each repeat so the caller
// can log-and-ignore per the DuplicateSecondary error kind.
func AddressSetDiff(desired []string, current map[string]struct{}, onRemove, onAdd func(key string), onDuplicate func(key string)) {
	wanted := make(map[string]struct{}, len(desired))
	for _, key := range desired {
		if _, dup := wanted[key]; dup {
			if onDuplicate != nil {
				onDuplicate(key)
			}
			continue
		}
		wanted[key] = struct{}{}
	}

	for key := range current {
		if _, ok := wanted[key]; !ok {
			onRemove(key)
			delete(current, key)
		}
	}

	for key := range wanted {
		if _, ok := current[key]; !ok {
			onAdd(key)
			current[key] = struct{}{}
		}
	}
}
