// Package datasource defines the contract every backend driver implements:
// connection lifecycle, transaction boundaries, data set enumeration, schema
// introspection and query execution.
//
// A DataSource is one configured connection target. It is created closed by
// a Registry factory and moves Closed → Opened on a successful Open and back
// on Close. Only an opened source hands out Transactors. Within the Opened
// state a transaction sub-state is tracked by IsInTransaction.
//
// None of the types here lock internally across calls: a host sharing one
// DataSource between goroutines serializes access itself.
//
// ScopedTransaction and RunInTransaction build on the Transactional surface
// of a DataSource. The Registry creates sources by backend type key:
//
//	reg := datasource.NewRegistry()
//	sqlite.Register(reg)
//	ds, err := reg.Make("SQLITE", "file:/data/cities.db")
//	if err := ds.Open(ctx); err != nil { ... }
//	defer ds.Close()
//
// Capabilities published at registration gate what the backend's
// transactors accept; profiles loaded from YAML can narrow them per
// deployment through ApplyProfiles.
package datasource
