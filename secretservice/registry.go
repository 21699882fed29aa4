package secretservice

import (
	"errors"
	"fmt"

	"github.com/ruteri/secret-service/interfaces"
)

// ErrDuplicatePath is returned when an object is registered under a path that is
// already taken.
var ErrDuplicatePath = errors.New("object path already registered")

// Object is anything addressable through the registry.
type Object interface {
	Path() interfaces.ObjectPath
}

// Registry maps object paths to the live Session, Prompt, Collection and Item
// instances they denote. An entry exists from registration until explicit removal.
//
// Registry does no locking of its own; it is owned by a Service and only touched
// while the service lock is held.
type Registry struct {
	objects map[interfaces.ObjectPath]Object
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[interfaces.ObjectPath]Object)}
}

// Register adds obj under its path.
func (r *Registry) Register(obj Object) error {
	path := obj.Path()
	if _, exists := r.objects[path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}
	r.objects[path] = obj
	return nil
}

// Remove drops the entry for path and reports whether one existed.
func (r *Registry) Remove(path interfaces.ObjectPath) bool {
	if _, exists := r.objects[path]; !exists {
		return false
	}
	delete(r.objects, path)
	return true
}

// Lookup returns the object registered under path.
func (r *Registry) Lookup(path interfaces.ObjectPath) (Object, bool) {
	obj, ok := r.objects[path]
	return obj, ok
}

// Session returns the session registered under path, if any.
func (r *Registry) Session(path interfaces.ObjectPath) (*Session, bool) {
	s, ok := r.objects[path].(*Session)
	return s, ok
}

// Prompt returns the prompt registered under path, if any.
func (r *Registry) Prompt(path interfaces.ObjectPath) (*Prompt, bool) {
	p, ok := r.objects[path].(*Prompt)
	return p, ok
}

// Collection returns the collection registered under path, if any.
func (r *Registry) Collection(path interfaces.ObjectPath) (*Collection, bool) {
	c, ok := r.objects[path].(*Collection)
	return c, ok
}

// Item returns the item registered under path, if any.
func (r *Registry) Item(path interfaces.ObjectPath) (*Item, bool) {
	i, ok := r.objects[path].(*Item)
	return i, ok
}

// Len returns the number of live objects.
func (r *Registry) Len() int {
	return len(r.objects)
}
