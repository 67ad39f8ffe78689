// Package repository implements the data access layer for the Shepherd API.
//
// Each repository struct owns the SurrealQL for one area (members,
// donations, prayer, events, volunteering, email, audit) and maps records
// onto model structs.
//
// # Repository Pattern
//
//   - Constructor function (NewXxxRepository) accepts a database.Database
//   - Get methods return nil, nil when the record does not exist
//   - List methods take a model.PageRequest and return a model.Page with the total
//   - Unique index violations are returned wrapped in database.ErrDuplicate
//
// # Query Patterns
//
//   - Parameterized queries with $variable syntax
//   - type::record() for links between tables
//   - time::now() for timestamps set by the database
//   - database.TxBuilder for read-check-write sequences (RSVP capacity,
//     volunteer shift capacity, prayed-for counters)
//
// Admin list endpoints accept AIP-160 filters; each repository exposes the
// filter.Schema naming the columns that may be filtered on.
//
// # Example Usage
//
//	repo := NewVolunteerRepository(db)
//	signup, err := repo.SignUp(ctx, "volunteer_shift:abc", "user:xyz", time.Now())
//	if errors.Is(err, database.ErrCapacity) {
//	    // shift is full or already started
//	}
package repository
