package session

import (
	"fmt"
	"reflect"
)

// Key identifies a session kind: the concrete Go type of the session
// plus an optional name. Uniqueness of a key is enforced only among the
// direct (non-pooled) sessions of a single context.
type Key struct {
	// Type is the concrete session type produced by a builder.
	Type reflect.Type

	// Name distinguishes multiple sessions of the same type.
	// Empty means unnamed.
	Name string
}

// KeyFor returns the key for session type S with the given name.
// An empty name yields the unnamed key for S.
func KeyFor[S Session](name string) Key {
	return Key{Type: reflect.TypeOf((*S)(nil)).Elem(), Name: name}
}

// KeyOf returns the key of an existing session instance.
func KeyOf(s Session) Key {
	return s.core().key
}

// String renders the key for error messages and logs.
func (k Key) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	if k.Name == "" {
		return k.Type.String()
	}
	return fmt.Sprintf("%s %q", k.Type, k.Name)
}

// Matches reports whether this key satisfies a lookup for typ and name.
// When exact is false the name is ignored and any session of the type
// matches.
func (k Key) Matches(typ reflect.Type, name string, exact bool) bool {
	if k.Type != typ {
		return false
	}
	if !exact {
		return true
	}
	return k.Name == name
}
