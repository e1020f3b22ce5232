// Package clientstore holds the per-visitor key/value storage that stands in
// for a browser's local storage.
package clientstore

import "strings"

// Store is a synchronous string key/value store.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	// Touch restarts the expiry of key on stores with a ttl. Missing keys
	// are ignored.
	Touch(key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(prefix string) error
	Close() error
}

// Scope confines a Store to the keys of one session.
type Scope struct {
	store  Store
	prefix string
}

// Scoped namespaces keys of store under "<prefix>:".
func Scoped(store Store, prefix string) *Scope {
	return &Scope{store: store, prefix: strings.TrimSuffix(prefix, ":") + ":"}
}

func (s *Scope) Get(key string) (string, bool, error) {
	return s.store.Get(s.prefix + key)
}

func (s *Scope) Set(key, value string) error {
	return s.store.Set(s.prefix+key, value)
}

func (s *Scope) Remove(key string) error {
	return s.store.Remove(s.prefix + key)
}

func (s *Scope) Touch(key string) error {
	return s.store.Touch(s.prefix + key)
}

// Purge deletes every key of the scope.
func (s *Scope) Purge() error {
	return s.store.DeletePrefix(s.prefix)
}
