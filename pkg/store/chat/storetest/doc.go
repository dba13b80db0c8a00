// Package storetest provides a conformance test suite for chat store implementations.
//
// All chat store backends (memory, badger, sqlite, postgres) should pass these
// tests. The suite verifies that every store implementation satisfies the Store
// behavioral contract, catching regressions when store code changes.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) chat.Store {
//	        return memory.New()
//	    })
//	}
//
// The factory function receives *testing.T so it can call t.TempDir() for
// stores that need filesystem paths (e.g., BadgerDB) and t.Cleanup for teardown.
package storetest
