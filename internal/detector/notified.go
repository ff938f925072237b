package detector

import (
	"sync"

	"github.com/StudioSol/set"
)

// NotifiedSet records token names that already triggered an alert.
// It only grows; nothing is persisted across restarts.
type NotifiedSet struct {
	mu    sync.RWMutex
	names *set.LinkedHashSetString
}

// NewNotifiedSet creates an empty NotifiedSet.
func NewNotifiedSet() *NotifiedSet {
	return &NotifiedSet{
		names: set.NewLinkedHashSetString(),
	}
}

// Add records name and reports whether it was new.
func (n *NotifiedSet) Add(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.names.InArray(name) {
		return false
	}
	n.names.Add(name)
	return true
}

// Contains reports whether name already triggered an alert.
func (n *NotifiedSet) Contains(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.names.InArray(name)
}

// Len returns the number of notified names.
func (n *NotifiedSet) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.names.Length()
}

// Names returns the notified names in insertion order.
func (n *NotifiedSet) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, n.names.Length())
	for name := range n.names.Iter() {
		names = append(names, name)
	}
	return names
}
