package service

import (
	"context"
	"sync"
	"time"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type auditRecord struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Detail       map[string]interface{}
}

// recordingAuditor keeps every audit call for assertions
type recordingAuditor struct {
	mu      sync.Mutex
	records []auditRecord
}

func (a *recordingAuditor) Record(ctx context.Context, actorID, action, resourceType, resourceID string, detail map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, auditRecord{actorID, action, resourceType, resourceID, detail})
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, r.Action)
	}
	return out
}

// countingChecker counts achievement evaluations per member
type countingChecker struct {
	mu     sync.Mutex
	checks map[string]int
}

func (c *countingChecker) Check(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checks == nil {
		c.checks = make(map[string]int)
	}
	c.checks[userID]++
}

func (c *countingChecker) count(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checks[userID]
}
