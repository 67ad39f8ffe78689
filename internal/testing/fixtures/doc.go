// Package fixtures provides test data factories for the Shepherd API.
//
// Factories insert through the real repositories, so fixtures obey the same
// defaults and invariants as production writes.
//
// # Factory Pattern
//
//	f := fixtures.New(tdb.DB)
//	member := f.CreateUser(t)
//	pastor := f.CreateStaff(t)
//
// # Customization
//
// Option functions adjust the defaults:
//
//	shift := f.CreateShift(t, opp, fixtures.WithSlots(1))
//	gift := f.CreateDonation(t, member, fixtures.WithAmount(2500))
//
// # Cleanup
//
// Test data is removed with the test database namespace.
package fixtures
