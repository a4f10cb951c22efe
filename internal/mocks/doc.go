// Package mocks provides shared in-memory test doubles for the store,
// generation, messaging and auth interfaces.
//
// The store mocks keep entities in maps and mirror the ordering and
// uniqueness rules of the Postgres implementation closely enough for
// service and dispatcher tests:
//
//	stores := mocks.NewMockStores()
//	uow := mocks.NewMockUnitOfWork(stores)
//	gen := mocks.NewMockTextGeneratorWithResponse("summary text")
//
// Each mock exposes Err fields or Fn hooks for injecting failures. The unit
// of work mock does not roll back; tests that depend on rollback belong with
// the Postgres store tests.
package mocks
