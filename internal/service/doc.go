// Package service holds the church's business rules: prayer requests,
// events and RSVPs, volunteer shifts, giving, reading plans, outreach,
// achievements and the staff insights built on top of them.
//
// Each service is built from a Config struct and declares the narrow
// repository interface it reads and writes through, so tests substitute
// in-memory fakes and the repository package can import this one without
// a cycle.
//
// Failures are package sentinels (ErrShiftFull, ErrPrayerNotFound, ...)
// that handlers map to problem responses. Capacity failures come back as
// *CapacityError, which unwraps to its sentinel and carries the limit and
// current count.
//
// Follow-up work after a successful write (audit entries, notifications,
// receipts, achievement checks) is logged when it fails and never fails
// the request that caused it.
//
//	svc := service.NewVolunteerService(service.VolunteerServiceConfig{
//	    Repo:         volunteerRepo,
//	    Achievements: achievements,
//	    Auditor:      audit,
//	})
//	signup, err := svc.SignUp(ctx, userID, shiftID)
package service
