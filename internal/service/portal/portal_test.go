package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customer-portal/internal/model"
	"customer-portal/internal/repository"
)

type fakeStore struct {
	snap          *model.CustomerPortalView
	milestones    []model.Milestone
	documents     []model.Document
	monitoring    []model.MonitoringMonthly
	referrals     []model.Referral
	notifications []model.Notification
	since         time.Time
	nps           []*model.NpsResponse
	readErr       error
}

func (f *fakeStore) Snapshot(ctx context.Context, customerID string) (*model.CustomerPortalView, error) {
	if f.snap == nil {
		return nil, repository.ErrNotFound
	}
	return f.snap, nil
}

func (f *fakeStore) Milestones(ctx context.Context, projectID string) ([]model.Milestone, error) {
	return f.milestones, nil
}

func (f *fakeStore) Documents(ctx context.Context, projectID string) ([]model.Document, error) {
	out := make([]model.Document, len(f.documents))
	copy(out, f.documents)
	return out, nil
}

func (f *fakeStore) Monitoring(ctx context.Context, projectID string, since time.Time) ([]model.MonitoringMonthly, error) {
	f.since = since
	return f.monitoring, nil
}

func (f *fakeStore) Referrals(ctx context.Context, customerID string) ([]model.Referral, error) {
	return f.referrals, nil
}

func (f *fakeStore) UnreadNotifications(ctx context.Context, customerID string, limit int) ([]model.Notification, error) {
	return f.notifications, nil
}

func (f *fakeStore) InsertNps(ctx context.Context, nps *model.NpsResponse) error {
	f.nps = append(f.nps, nps)
	return nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, customerID, notificationID string) error {
	return f.readErr
}

type fakeSigner struct{}

func (fakeSigner) SignURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if path == "broken.pdf" {
		return "", errors.New("object not found")
	}
	return "https://storage/" + bucket + "/" + path + "?ttl=" + ttl.String(), nil
}

func newTestService(store *fakeStore) *Service {
	s := NewService(store, fakeSigner{}, "project-documents", time.Hour, zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }
	return s
}

func projectSnapshot() *model.CustomerPortalView {
	pid := "c0a80101-0000-4000-8000-000000000001"
	return &model.CustomerPortalView{CustomerID: "cust", FirstName: "Anna", ProjectID: &pid, TotalKWh: 10000, TotalCO2Kg: 4740}
}

func TestDashboard(t *testing.T) {
	store := &fakeStore{
		snap: projectSnapshot(),
		milestones: []model.Milestone{
			{Key: "consultation", Status: model.MilestoneDone},
			{Key: "contract", Status: model.MilestoneDone},
			{Key: "installation", Status: model.MilestoneActive},
			{Key: "feed_in", Status: model.MilestonePending},
		},
		documents: []model.Document{
			{ID: "d1", StoragePath: "p/vertrag.pdf"},
			{ID: "d2", StoragePath: "broken.pdf"},
		},
		referrals: []model.Referral{{Status: model.ReferralConverted, BonusAmount: 250}},
	}

	d, err := newTestService(store).Dashboard(context.Background(), "cust")
	require.NoError(t, err)

	assert.Equal(t, 50, d.ProgressPercent)
	require.NotNil(t, d.ActiveMilestone)
	assert.Equal(t, "installation", d.ActiveMilestone.Key)
	assert.Equal(t, "https://storage/project-documents/p/vertrag.pdf?ttl=1h0m0s", d.Documents[0].DownloadURL)
	assert.Empty(t, d.Documents[1].DownloadURL)
	assert.Equal(t, 226, d.Totals.Trees)
	assert.Equal(t, 1, d.ReferralSummary.Converted)
	assert.Equal(t, "2025-10-19", store.since.Format(time.DateOnly))
}

func TestDashboardErrors(t *testing.T) {
	_, err := newTestService(&fakeStore{}).Dashboard(context.Background(), "cust")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = newTestService(&fakeStore{snap: &model.CustomerPortalView{CustomerID: "cust"}}).Dashboard(context.Background(), "cust")
	assert.ErrorIs(t, err, ErrNoProject)
}

func TestSubmitNps(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	_, err := s.SubmitNps(context.Background(), "cust", 11, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty := ""
	nps, err := s.SubmitNps(context.Background(), "cust", 9, &empty)
	require.NoError(t, err)
	assert.Equal(t, "portal", nps.Trigger)
	assert.Nil(t, nps.Comment)
	assert.Len(t, store.nps, 1)
}

func TestMarkNotificationRead(t *testing.T) {
	s := newTestService(&fakeStore{readErr: repository.ErrNotFound})
	assert.ErrorIs(t, s.MarkNotificationRead(context.Background(), "cust", "not-a-uuid"), ErrNotFound)
	assert.ErrorIs(t, s.MarkNotificationRead(context.Background(), "cust", "c0a80101-0000-4000-8000-000000000009"), ErrNotFound)

	ok := newTestService(&fakeStore{})
	assert.NoError(t, ok.MarkNotificationRead(context.Background(), "cust", "c0a80101-0000-4000-8000-000000000009"))
}
