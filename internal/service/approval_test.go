package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/devguard/internal/domain"
	"github.com/xela07ax/devguard/internal/infra"
	"go.uber.org/zap"
)

// fakeApprovalRepo — хранилище в памяти, повторяющее контракт Postgres-слоя:
// условный resolve (только из pending) и COALESCE-семантику notes.
type fakeApprovalRepo struct {
	requests      map[string]*domain.ApprovalRequest
	cooldownHours map[string]int // нет ключа — настроек у устройства нет
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{
		requests:      make(map[string]*domain.ApprovalRequest),
		cooldownHours: make(map[string]int),
	}
}

func (f *fakeApprovalRepo) CreateApproval(_ context.Context, app *domain.ApprovalRequest) error {
	cp := *app
	f.requests[app.ID] = &cp
	return nil
}

func (f *fakeApprovalRepo) GetApprovalByIDAndDevice(_ context.Context, id, deviceID string) (*domain.ApprovalRequest, error) {
	app, ok := f.requests[id]
	if !ok || app.DeviceID != deviceID {
		return nil, domain.ErrNotFound
	}
	cp := *app
	return &cp, nil
}

func (f *fakeApprovalRepo) ResolveApproval(_ context.Context, id string, status domain.ApprovalStatus, notes *string, resolvedAt time.Time) (*domain.ApprovalRequest, error) {
	app, ok := f.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if app.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyResolved
	}
	app.Status = status
	app.ResolvedAt = &resolvedAt
	if notes != nil {
		app.Notes = notes
	}
	cp := *app
	return &cp, nil
}

func (f *fakeApprovalRepo) FindPendingApprovals(_ context.Context) ([]*domain.PendingRequest, error) {
	out := make([]*domain.PendingRequest, 0)
	for _, app := range f.requests {
		if app.Status == domain.StatusPending {
			out = append(out, &domain.PendingRequest{ApprovalRequest: *app})
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) FindApprovalsByDevice(_ context.Context, deviceID string) ([]*domain.ApprovalRequest, error) {
	out := make([]*domain.ApprovalRequest, 0)
	for _, app := range f.requests {
		if app.DeviceID == deviceID {
			cp := *app
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) GetCooldownHours(_ context.Context, deviceID string) (int, error) {
	if h, ok := f.cooldownHours[deviceID]; ok {
		return h, nil
	}
	return domain.DefaultCooldownHours, nil
}

type fakeNotifier struct {
	decisions []string
}

func (f *fakeNotifier) NotifyApprovalDecision(_ context.Context, deviceID, requestID, status string) {
	f.decisions = append(f.decisions, deviceID+"/"+requestID+"/"+status)
}

func newTestApprovalService(repo *fakeApprovalRepo, notifier *fakeNotifier, now time.Time) *ApprovalService {
	s := NewApprovalService(repo, notifier, infra.NewMetrics(nil), zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func str(s string) *string { return &s }

func TestSubmitComputesCooldown(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newFakeApprovalRepo()
	repo.cooldownHours["dev-1"] = 48

	svc := newTestApprovalService(repo, &fakeNotifier{}, t0)

	app, err := svc.Submit(context.Background(), "dev-1", "unblock_app",
		map[string]any{"package_name": "com.example.game"}, str("please"))
	require.NoError(t, err)

	assert.NotEmpty(t, app.ID)
	assert.Equal(t, domain.StatusPending, app.Status)
	assert.Equal(t, t0, app.RequestedAt)
	assert.Equal(t, t0.Add(48*time.Hour), app.CooldownUntil)
	assert.Nil(t, app.ResolvedAt)
	require.NotNil(t, app.Notes)
	assert.Equal(t, "please", *app.Notes)
}

func TestSubmitDefaultsTo48HoursWithoutSettings(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newFakeApprovalRepo() // строки настроек нет

	svc := newTestApprovalService(repo, &fakeNotifier{}, t0)

	app, err := svc.Submit(context.Background(), "dev-1", "whitelist_url",
		map[string]any{"url_pattern": "example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(48*time.Hour), app.CooldownUntil)
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestApprovalService(newFakeApprovalRepo(), &fakeNotifier{}, time.Now())

	_, err := svc.Submit(context.Background(), "dev-1", "", map[string]any{"x": 1}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Submit(context.Background(), "dev-1", "  ", map[string]any{"x": 1}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Submit(context.Background(), "dev-1", "unblock_app", nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckStatusCrossDeviceIndistinguishable(t *testing.T) {
	t0 := time.Now()
	repo := newFakeApprovalRepo()
	svc := newTestApprovalService(repo, &fakeNotifier{}, t0)

	app, err := svc.Submit(context.Background(), "dev-1", "unblock_app", map[string]any{"x": 1}, nil)
	require.NoError(t, err)

	// Чужая заявка и несуществующая дают одну и ту же ошибку
	_, errForeign := svc.CheckStatus(context.Background(), "dev-2", app.ID)
	_, errMissing := svc.CheckStatus(context.Background(), "dev-1", "nonexistent-id")

	assert.ErrorIs(t, errForeign, domain.ErrNotFound)
	assert.ErrorIs(t, errMissing, domain.ErrNotFound)
	assert.Equal(t, errForeign, errMissing)
}

func TestResolveRejectsInvalidStatus(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := newTestApprovalService(repo, &fakeNotifier{}, time.Now())

	app, err := svc.Submit(context.Background(), "dev-1", "unblock_app", map[string]any{"x": 1}, nil)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "admin-1", app.ID, "cancelled", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	// Запись не изменилась
	stored := repo.requests[app.ID]
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.ResolvedAt)
}

func TestResolveNotesSemantics(t *testing.T) {
	repo := newFakeApprovalRepo()
	notifier := &fakeNotifier{}
	svc := newTestApprovalService(repo, notifier, time.Now())

	// Без notes при решении — исходные сохраняются
	app1, err := svc.Submit(context.Background(), "dev-1", "unblock_app", map[string]any{"x": 1}, str("original"))
	require.NoError(t, err)
	resolved1, err := svc.Resolve(context.Background(), "admin-1", app1.ID, domain.StatusApproved, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved1.Notes)
	assert.Equal(t, "original", *resolved1.Notes)

	// С notes — перезаписываются
	app2, err := svc.Submit(context.Background(), "dev-1", "unblock_app", map[string]any{"x": 2}, str("original"))
	require.NoError(t, err)
	resolved2, err := svc.Resolve(context.Background(), "admin-1", app2.ID, domain.StatusDenied, str("overwritten"))
	require.NoError(t, err)
	require.NotNil(t, resolved2.Notes)
	assert.Equal(t, "overwritten", *resolved2.Notes)
}

func TestResolveTwiceConflicts(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := newTestApprovalService(repo, &fakeNotifier{}, time.Now())

	app, err := svc.Submit(context.Background(), "dev-1", "unblock_app", map[string]any{"x": 1}, nil)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "admin-1", app.ID, domain.StatusApproved, nil)
	require.NoError(t, err)

	// Повторное решение не перезаписывает первое
	_, err = svc.Resolve(context.Background(), "admin-2", app.ID, domain.StatusDenied, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	assert.Equal(t, domain.StatusApproved, repo.requests[app.ID].Status)
}

func TestResolveMissingIsNotFound(t *testing.T) {
	svc := newTestApprovalService(newFakeApprovalRepo(), &fakeNotifier{}, time.Now())

	_, err := svc.Resolve(context.Background(), "admin-1", "nonexistent", domain.StatusApproved, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Сквозной сценарий: подача при T0, решение при T0+1h,
// проверка при T0+2h (кулдаун не истек) и T0+49h (истек).
func TestLifecycleScenario(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeApprovalRepo()
	repo.cooldownHours["dev-1"] = 48
	notifier := &fakeNotifier{}

	svc := newTestApprovalService(repo, notifier, t0)

	app, err := svc.Submit(context.Background(), "dev-1", "unblock_app",
		map[string]any{"package_name": "com.example.game"}, nil)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(48*time.Hour), app.CooldownUntil)
	assert.Equal(t, domain.StatusPending, app.Status)

	// Админ одобряет через час
	svc.now = func() time.Time { return t0.Add(time.Hour) }
	resolved, err := svc.Resolve(context.Background(), "admin-1", app.ID, domain.StatusApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, t0.Add(time.Hour), *resolved.ResolvedAt)

	// Устройство получило push-сигнал о решении
	require.Len(t, notifier.decisions, 1)
	assert.Equal(t, "dev-1/"+app.ID+"/approved", notifier.decisions[0])

	// T0+2h: одобрено, но кулдаун еще не истек
	svc.now = func() time.Time { return t0.Add(2 * time.Hour) }
	res, err := svc.CheckStatus(context.Background(), "dev-1", app.ID)
	require.NoError(t, err)
	assert.False(t, res.CanApply)

	// T0+49h: можно применять
	svc.now = func() time.Time { return t0.Add(49 * time.Hour) }
	res, err = svc.CheckStatus(context.Background(), "dev-1", app.ID)
	require.NoError(t, err)
	assert.True(t, res.CanApply)
	assert.Equal(t, domain.StatusApproved, res.Request.Status)
}
