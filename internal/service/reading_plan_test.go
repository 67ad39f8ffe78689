package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

type memReadingPlans struct {
	mu       sync.Mutex
	plans    map[string]*model.ReadingPlan
	progress map[string]*model.ReadingProgress // by id
	seq      int
}

func newMemReadingPlans() *memReadingPlans {
	return &memReadingPlans{
		plans:    make(map[string]*model.ReadingPlan),
		progress: make(map[string]*model.ReadingProgress),
	}
}

func (m *memReadingPlans) Create(ctx context.Context, plan *model.ReadingPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	plan.ID = fmt.Sprintf("reading_plan:%d", m.seq)
	m.plans[plan.ID] = plan
	return nil
}

func (m *memReadingPlans) Get(ctx context.Context, id string) (*model.ReadingPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plans[id], nil
}

func (m *memReadingPlans) List(ctx context.Context, page model.PageRequest) (*model.Page[*model.ReadingPlan], error) {
	return &model.Page[*model.ReadingPlan]{PageRequest: page}, nil
}

func (m *memReadingPlans) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plans, id)
	for pid, p := range m.progress {
		if p.PlanID == id {
			delete(m.progress, pid)
		}
	}
	return nil
}

func (m *memReadingPlans) find(userID, planID string) *model.ReadingProgress {
	for _, p := range m.progress {
		if p.UserID == userID && p.PlanID == planID {
			return p
		}
	}
	return nil
}

func (m *memReadingPlans) Enroll(ctx context.Context, userID, planID string) (*model.ReadingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(userID, planID) != nil {
		return nil, fmt.Errorf("%w: reading_progress", database.ErrDuplicate)
	}
	m.seq++
	p := &model.ReadingProgress{
		ID:        fmt.Sprintf("reading_progress:%d", m.seq),
		UserID:    userID,
		PlanID:    planID,
		TotalDays: len(m.plans[planID].Days),
	}
	m.progress[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *memReadingPlans) GetProgress(ctx context.Context, userID, planID string) (*model.ReadingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(userID, planID)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memReadingPlans) CompleteDay(ctx context.Context, progressID string, day int) (*model.ReadingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressID]
	if !ok {
		return nil, nil
	}
	p.CompletedDays = append(p.CompletedDays, day)
	if len(p.CompletedDays) == p.TotalDays {
		done := testNow
		p.CompletedOn = &done
	}
	cp := *p
	return &cp, nil
}

func (m *memReadingPlans) ListProgress(ctx context.Context, userID string) ([]*model.ReadingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ReadingProgress
	for _, p := range m.progress {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func publishPlan(t *testing.T, svc *ReadingPlanService, days int) *model.ReadingPlan {
	t.Helper()
	req := &model.CreateReadingPlanRequest{Title: " Psalms in a Week "}
	for d := 1; d <= days; d++ {
		req.Days = append(req.Days, model.ReadingDay{Day: d, Passages: []string{fmt.Sprintf("Psalm %d", d)}})
	}
	plan, err := svc.Create(context.Background(), "user:pastor", req)
	require.NoError(t, err)
	return plan
}

// ============================================================================
// Plans
// ============================================================================

func TestReadingPlanService_CreateAndDelete(t *testing.T) {
	t.Parallel()
	audit := &recordingAuditor{}
	svc := NewReadingPlanService(newMemReadingPlans(), nil, audit)
	ctx := context.Background()

	plan := publishPlan(t, svc, 3)
	assert.Equal(t, "Psalms in a Week", plan.Title)

	require.NoError(t, svc.Delete(ctx, "user:pastor", plan.ID))
	_, err := svc.Get(ctx, plan.ID)
	assert.ErrorIs(t, err, ErrReadingPlanNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "user:pastor", plan.ID), ErrReadingPlanNotFound)

	assert.Equal(t, []string{model.AuditReadingPlanCreate, model.AuditReadingPlanDelete}, audit.actions())
}

func TestReadingPlanService_Create_RejectsRepeatedDay(t *testing.T) {
	t.Parallel()
	repo := newMemReadingPlans()
	svc := NewReadingPlanService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "user:pastor", &model.CreateReadingPlanRequest{
		Title: "Mark",
		Days: []model.ReadingDay{
			{Day: 1, Passages: []string{"Mark 1"}},
			{Day: 1, Passages: []string{"Mark 2"}},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, repo.plans)
}

// ============================================================================
// Progress
// ============================================================================

func TestReadingPlanService_Enroll(t *testing.T) {
	t.Parallel()
	svc := NewReadingPlanService(newMemReadingPlans(), nil, nil)
	ctx := context.Background()
	plan := publishPlan(t, svc, 4)

	progress, err := svc.Enroll(ctx, "user:ruth", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, progress.TotalDays)
	assert.Zero(t, progress.Percent)

	_, err = svc.Enroll(ctx, "user:ruth", plan.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	_, err = svc.Enroll(ctx, "user:ruth", "reading_plan:missing")
	assert.ErrorIs(t, err, ErrReadingPlanNotFound)
}

func TestReadingPlanService_CompleteDay(t *testing.T) {
	t.Parallel()
	checker := &countingChecker{}
	svc := NewReadingPlanService(newMemReadingPlans(), checker, nil)
	ctx := context.Background()
	plan := publishPlan(t, svc, 3)

	_, err := svc.CompleteDay(ctx, "user:ruth", plan.ID, 1)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = svc.Enroll(ctx, "user:ruth", plan.ID)
	require.NoError(t, err)

	_, err = svc.CompleteDay(ctx, "user:ruth", plan.ID, 4)
	assert.ErrorIs(t, err, ErrInvalidDay)

	p, err := svc.CompleteDay(ctx, "user:ruth", plan.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 33.3, p.Percent)

	again, err := svc.CompleteDay(ctx, "user:ruth", plan.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, again.CompletedDays, "repeating a day is a no-op")

	for _, day := range []int{1, 3} {
		p, err = svc.CompleteDay(ctx, "user:ruth", plan.ID, day)
		require.NoError(t, err)
	}
	assert.Equal(t, float64(100), p.Percent)
	require.NotNil(t, p.CompletedOn)
	assert.Equal(t, 1, checker.count("user:ruth"), "achievements checked once, on completion")
}

func TestReadingPlanService_Progress_ComputesPercent(t *testing.T) {
	t.Parallel()
	svc := NewReadingPlanService(newMemReadingPlans(), nil, nil)
	ctx := context.Background()
	plan := publishPlan(t, svc, 8)

	_, err := svc.Enroll(ctx, "user:ruth", plan.ID)
	require.NoError(t, err)
	_, err = svc.CompleteDay(ctx, "user:ruth", plan.ID, 5)
	require.NoError(t, err)

	all, err := svc.Progress(ctx, "user:ruth")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 12.5, all[0].Percent)
}
