// Package inmemorystore provides a thread-safe, in-memory implementation
// of the instances.Store interface. Page state is never persisted, so this
// is the only implementation the runtime needs.
package inmemorystore
