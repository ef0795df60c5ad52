package model

// Ref is a named pointer to a commit: a branch head or a tag target.
type Ref struct {
	Kind   RefKind
	Name   string
	Commit string
}

// RefChange describes a ref whose commit differs from the last notified one.
// Previous is empty for refs that did not exist at the last notification.
type RefChange struct {
	Kind     RefKind
	Name     string
	Previous string
	Current  string
}

// IsNew reports whether the ref was created since the last notification.
func (c RefChange) IsNew() bool {
	return c.Previous == ""
}
