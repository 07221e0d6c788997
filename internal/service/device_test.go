package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/devguard/internal/domain"
	"go.uber.org/zap"
)

type fakeDeviceRepo struct {
	devices  map[string]*domain.Device // ключ android_id
	settings map[string]*domain.DeviceSettings
	touched  []string
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{
		devices:  make(map[string]*domain.Device),
		settings: make(map[string]*domain.DeviceSettings),
	}
}

func (f *fakeDeviceRepo) CreateDevice(_ context.Context, d *domain.Device) error {
	cp := *d
	f.devices[d.AndroidID] = &cp
	f.settings[d.ID] = &domain.DeviceSettings{DeviceID: d.ID, CooldownHours: domain.DefaultCooldownHours}
	return nil
}

func (f *fakeDeviceRepo) GetDeviceByAndroidID(_ context.Context, androidID string) (*domain.Device, error) {
	if d, ok := f.devices[androidID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDeviceRepo) GetDevice(_ context.Context, id string) (*domain.Device, error) {
	for _, d := range f.devices {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeviceRepo) ListDevices(_ context.Context) ([]*domain.Device, error) {
	out := make([]*domain.Device, 0)
	for _, d := range f.devices {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeDeviceRepo) TouchLastSeen(_ context.Context, deviceID string) error {
	f.touched = append(f.touched, deviceID)
	return nil
}

func (f *fakeDeviceRepo) GetSettings(_ context.Context, deviceID string) (*domain.DeviceSettings, error) {
	if s, ok := f.settings[deviceID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDeviceRepo) UpdateSettings(_ context.Context, deviceID string, patch domain.SettingsPatch) (*domain.DeviceSettings, error) {
	s, ok := f.settings[deviceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.CooldownHours != nil {
		s.CooldownHours = *patch.CooldownHours
	}
	if patch.RequireAdminApproval != nil {
		s.RequireAdminApproval = *patch.RequireAdminApproval
	}
	if patch.VPNAlwaysOn != nil {
		s.VPNAlwaysOn = *patch.VPNAlwaysOn
	}
	if patch.PreventFactoryReset != nil {
		s.PreventFactoryReset = *patch.PreventFactoryReset
	}
	cp := *s
	return &cp, nil
}

func (f *fakeDeviceRepo) FindAppPolicies(_ context.Context, _ string) ([]domain.AppPolicy, error) {
	return []domain.AppPolicy{}, nil
}

func (f *fakeDeviceRepo) FindBlockedURLs(_ context.Context, _ string) ([]domain.BlockedURL, error) {
	return []domain.BlockedURL{}, nil
}

func (f *fakeDeviceRepo) FindAccessibilityPolicies(_ context.Context, _ string) ([]domain.AccessibilityPolicy, error) {
	return []domain.AccessibilityPolicy{}, nil
}

func (f *fakeDeviceRepo) FindViolations(_ context.Context, _ string) ([]*domain.Violation, error) {
	return []*domain.Violation{}, nil
}

type fakeTokenIssuer struct{ issued int }

func (f *fakeTokenIssuer) IssueDeviceToken(deviceID, androidID string) (string, error) {
	f.issued++
	return "token-" + deviceID, nil
}

type fakeSink struct{ events []domain.Violation }

func (f *fakeSink) Log(event domain.Violation) { f.events = append(f.events, event) }

type fakePolicyNotifier struct{ updates []string }

func (f *fakePolicyNotifier) NotifyPolicyUpdate(_ context.Context, deviceID string) {
	f.updates = append(f.updates, deviceID)
}

func newTestDeviceService(repo *fakeDeviceRepo) (*DeviceService, *fakeTokenIssuer, *fakeSink, *fakePolicyNotifier) {
	tokens := &fakeTokenIssuer{}
	sink := &fakeSink{}
	notifier := &fakePolicyNotifier{}
	return NewDeviceService(repo, tokens, sink, notifier, zap.NewNop()), tokens, sink, notifier
}

func TestRegisterIsIdempotentOnAndroidID(t *testing.T) {
	repo := newFakeDeviceRepo()
	svc, tokens, _, _ := newTestDeviceService(repo)

	first, created, err := svc.Register(context.Background(), "Pixel 7", "android-abc")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.DeviceID)
	assert.Equal(t, "token-"+first.DeviceID, first.DeviceToken)

	// Повторная регистрация: тот же токен, без перевыпуска
	second, created, err := svc.Register(context.Background(), "Pixel 7 renamed", "android-abc")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, first.DeviceToken, second.DeviceToken)
	assert.Equal(t, 1, tokens.issued)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestDeviceService(newFakeDeviceRepo())

	_, _, err := svc.Register(context.Background(), "", "android-abc")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.Register(context.Background(), "Pixel", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReportViolationGoesThroughSink(t *testing.T) {
	svc, _, sink, _ := newTestDeviceService(newFakeDeviceRepo())

	err := svc.ReportViolation(context.Background(), "dev-1", "blocked_app_launch",
		map[string]any{"package_name": "com.example.game"})
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "dev-1", sink.events[0].DeviceID)
	assert.Equal(t, "blocked_app_launch", sink.events[0].ViolationType)
	assert.NotEmpty(t, sink.events[0].ID)

	err = svc.ReportViolation(context.Background(), "dev-1", "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, sink.events, 1)
}

func TestReportViolationsBatchRejectsPartiallyInvalid(t *testing.T) {
	svc, _, sink, _ := newTestDeviceService(newFakeDeviceRepo())

	err := svc.ReportViolationsBatch(context.Background(), "dev-1", []domain.Violation{
		{ViolationType: "blocked_url_visit"},
		{ViolationType: ""},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	// Ничего не принято: батч валидируется целиком до приема
	assert.Empty(t, sink.events)
}

func TestUpdateSettingsNotifiesDevice(t *testing.T) {
	repo := newFakeDeviceRepo()
	svc, _, _, notifier := newTestDeviceService(repo)

	reg, _, err := svc.Register(context.Background(), "Pixel 7", "android-abc")
	require.NoError(t, err)

	hours := 24
	settings, err := svc.UpdateSettings(context.Background(), reg.DeviceID, domain.SettingsPatch{CooldownHours: &hours})
	require.NoError(t, err)
	assert.Equal(t, 24, settings.CooldownHours)
	assert.Equal(t, []string{reg.DeviceID}, notifier.updates)

	bad := 0
	_, err = svc.UpdateSettings(context.Background(), reg.DeviceID, domain.SettingsPatch{CooldownHours: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetPolicyBundleTouchesLastSeen(t *testing.T) {
	repo := newFakeDeviceRepo()
	svc, _, _, _ := newTestDeviceService(repo)

	reg, _, err := svc.Register(context.Background(), "Pixel 7", "android-abc")
	require.NoError(t, err)

	bundle, err := svc.GetPolicyBundle(context.Background(), reg.DeviceID)
	require.NoError(t, err)
	require.NotNil(t, bundle.Settings)
	assert.Equal(t, domain.DefaultCooldownHours, bundle.Settings.CooldownHours)
	assert.Equal(t, []string{reg.DeviceID}, repo.touched)
}
