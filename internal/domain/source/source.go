package source

// Source identifies one external system category.
type Source string

const (
	Chat     Source = "chat"
	Tracker  Source = "tracker"
	CodeHost Source = "codehost"
)

// All returns every known source in sync order.
func All() []Source {
	return []Source{Chat, Tracker, CodeHost}
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case Chat, Tracker, CodeHost:
		return true
	}
	return false
}
