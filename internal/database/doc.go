// Package database provides SurrealDB connectivity for the Shepherd API.
//
// Repositories depend on the Database interface rather than the driver, so
// service and repository tests can substitute a fake.
//
// # Query Methods
//
//   - Query returns one {"status", "result"} map per statement
//   - QueryOne unwraps the first record of the first statement
//   - Execute discards results (mutations)
//
// Every query runs inside an OpenTelemetry client span named
// "surrealdb.query".
//
// # Transactions
//
// SurrealDB transactions are expressed as a single BEGIN/COMMIT block.
// TxBuilder assembles one, with Guard statements that THROW to abort. The
// volunteer signup path uses this to check capacity and increment the
// filled-slot counter atomically:
//
//	tb := database.NewTxBuilder().Bind("shift", id)
//	tb.Let("s", "(SELECT * FROM ONLY type::record($shift))")
//	tb.Guard("$s.slots_filled >= $s.slots_available", "shift_full")
//	_, err := database.ExecuteTransaction(ctx, db, tb)
//	var guard *database.GuardError
//	if errors.As(err, &guard) { ... }
//
// # Error Types
//
//   - ErrNotFound: record does not exist
//   - ErrDuplicate: unique index violation
//   - ErrConnection: connection failures
//   - ErrQuery: query execution failures
//   - ErrCapacity: a transaction guard fired (full shift, full event)
package database
