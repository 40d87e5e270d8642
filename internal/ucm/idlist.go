package ucm

// identEntry is one member of an IdentList.
type identEntry struct {
	name   string
	active bool
}

// IdentList is an insertion-ordered set of identifiers, each with an active
// flag. The flag tracks whether a device's own control sequence has been
// written to the mixer, as opposed to mere membership.
//
// IdentList is not safe for concurrent use; sessions guard it with their lock.
type IdentList struct {
	entries []identEntry
}

// Add appends name. Callers check Contains first; Add does not deduplicate.
func (l *IdentList) Add(name string) {
	l.entries = append(l.entries, identEntry{name: name})
}

// Remove deletes name, preserving the order of the remaining entries.
func (l *IdentList) Remove(name string) error {
	i := l.index(name)
	if i < 0 {
		return notFoundf("identifier %q not in list", name)
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return nil
}

// At returns the identifier at index i.
func (l *IdentList) At(i int) (string, error) {
	if i < 0 || i >= len(l.entries) {
		return "", invalidArgf("index %d out of range [0,%d)", i, len(l.entries))
	}
	return l.entries[i].name, nil
}

// Len returns the number of identifiers.
func (l *IdentList) Len() int {
	return len(l.entries)
}

// Contains reports membership.
func (l *IdentList) Contains(name string) bool {
	return l.index(name) >= 0
}

// SetActive sets the active flag of name.
func (l *IdentList) SetActive(name string, active bool) error {
	i := l.index(name)
	if i < 0 {
		return notFoundf("identifier %q not in list", name)
	}
	l.entries[i].active = active
	return nil
}

// Active returns the active flag of name.
func (l *IdentList) Active(name string) (bool, error) {
	i := l.index(name)
	if i < 0 {
		return false, notFoundf("identifier %q not in list", name)
	}
	return l.entries[i].active, nil
}

// Names returns a copy of the identifiers in insertion order.
func (l *IdentList) Names() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.name
	}
	return names
}

// Each calls fn for every entry in order.
func (l *IdentList) Each(fn func(name string, active bool)) {
	for _, e := range l.entries {
		fn(e.name, e.active)
	}
}

// Clear drops all entries.
func (l *IdentList) Clear() {
	l.entries = nil
}

func (l *IdentList) index(name string) int {
	for i, e := range l.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}
