package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"customer-portal/internal/model"
	"customer-portal/internal/repository"
	"customer-portal/pkg/logger"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNoProject    = errors.New("customer has no project")
	ErrInvalidInput = errors.New("invalid input")
)

const (
	unreadLimit      = 10
	monitoringMonths = 12
	npsTrigger       = "portal"
	// concurrent signing requests per dashboard load
	signConcurrency = 4
)

type Store interface {
	Snapshot(ctx context.Context, customerID string) (*model.CustomerPortalView, error)
	Milestones(ctx context.Context, projectID string) ([]model.Milestone, error)
	Documents(ctx context.Context, projectID string) ([]model.Document, error)
	Monitoring(ctx context.Context, projectID string, since time.Time) ([]model.MonitoringMonthly, error)
	Referrals(ctx context.Context, customerID string) ([]model.Referral, error)
	UnreadNotifications(ctx context.Context, customerID string, limit int) ([]model.Notification, error)
	InsertNps(ctx context.Context, nps *model.NpsResponse) error
	MarkNotificationRead(ctx context.Context, customerID, notificationID string) error
}

// URLSigner issues time-limited download links for stored files.
type URLSigner interface {
	SignURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
}

type Service struct {
	store  Store
	signer URLSigner
	bucket string
	urlTTL time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, signer URLSigner, bucket string, urlTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		signer: signer,
		bucket: bucket,
		urlTTL: urlTTL,
		logger: logger,
		now:    time.Now,
	}
}

type Totals struct {
	KWh        float64 `json:"kwh"`
	CO2Kg      float64 `json:"co2_kg"`
	Trees      int     `json:"trees"`
	RevenueEUR float64 `json:"revenue_eur"`
}

type Dashboard struct {
	Snapshot        *model.CustomerPortalView `json:"snapshot"`
	Milestones      []model.Milestone         `json:"milestones"`
	ActiveMilestone *model.Milestone          `json:"active_milestone"`
	ProgressPercent int                       `json:"progress_percent"`
	Documents       []model.Document          `json:"documents"`
	Monitoring      []model.MonitoringMonthly `json:"monitoring"`
	Totals          Totals                    `json:"totals"`
	Referrals       []model.Referral          `json:"referrals"`
	ReferralSummary model.ReferralSummary     `json:"referral_summary"`
	Notifications   []model.Notification      `json:"notifications"`
}

// Dashboard loads everything the portal shows in one call. The per-project
// reads run concurrently once the snapshot has resolved the project.
func (s *Service) Dashboard(ctx context.Context, customerID string) (*Dashboard, error) {
	snap, err := s.snapshot(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if snap.ProjectID == nil {
		return nil, ErrNoProject
	}
	projectID := *snap.ProjectID

	d := &Dashboard{Snapshot: snap}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Milestones, err = s.store.Milestones(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		d.Documents, err = s.documents(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		d.Monitoring, err = s.store.Monitoring(gctx, projectID, s.monitoringSince())
		return err
	})
	g.Go(func() (err error) {
		d.Referrals, err = s.store.Referrals(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		d.Notifications, err = s.store.UnreadNotifications(gctx, customerID, unreadLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	d.ActiveMilestone = model.ActiveMilestone(d.Milestones)
	d.ProgressPercent = model.ProgressPercent(d.Milestones)
	d.ReferralSummary = model.SummarizeReferrals(d.Referrals)
	co2 := model.CO2ForKWh(snap.TotalKWh)
	d.Totals = Totals{
		KWh:        snap.TotalKWh,
		CO2Kg:      co2,
		Trees:      model.TreesForCO2(co2),
		RevenueEUR: snap.TotalRevenueEUR,
	}
	return d, nil
}

func (s *Service) snapshot(ctx context.Context, customerID string) (*model.CustomerPortalView, error) {
	snap, err := s.store.Snapshot(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return snap, nil
}

func (s *Service) projectID(ctx context.Context, customerID string) (string, error) {
	snap, err := s.snapshot(ctx, customerID)
	if err != nil {
		return "", err
	}
	if snap.ProjectID == nil {
		return "", ErrNoProject
	}
	return *snap.ProjectID, nil
}

func (s *Service) Milestones(ctx context.Context, customerID string) ([]model.Milestone, error) {
	projectID, err := s.projectID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.store.Milestones(ctx, projectID)
}

// Documents returns the project's documents, newest first, with download links.
func (s *Service) Documents(ctx context.Context, customerID string) ([]model.Document, error) {
	projectID, err := s.projectID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.documents(ctx, projectID)
}

// documents signs every document; a failed signature leaves DownloadURL empty.
func (s *Service) documents(ctx context.Context, projectID string) ([]model.Document, error) {
	docs, err := s.store.Documents(ctx, projectID)
	if err != nil {
		return nil, err
	}

	log := logger.WithTrace(ctx, s.logger)
	var g errgroup.Group
	g.SetLimit(signConcurrency)
	for i := range docs {
		doc := &docs[i]
		g.Go(func() error {
			signed, err := s.signer.SignURL(ctx, s.bucket, doc.StoragePath, s.urlTTL)
			if err != nil {
				log.Warn("Failed to sign document URL",
					zap.String("document_id", doc.ID),
					zap.Error(err),
				)
				return nil
			}
			doc.DownloadURL = signed
			return nil
		})
	}
	_ = g.Wait()
	return docs, nil
}

func (s *Service) monitoringSince() time.Time {
	return s.now().AddDate(0, -monitoringMonths, 0)
}

func (s *Service) Monitoring(ctx context.Context, customerID string) ([]model.MonitoringMonthly, error) {
	projectID, err := s.projectID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.store.Monitoring(ctx, projectID, s.monitoringSince())
}

type ReferralOverview struct {
	Referrals []model.Referral      `json:"referrals"`
	Summary   model.ReferralSummary `json:"summary"`
}

func (s *Service) Referrals(ctx context.Context, customerID string) (*ReferralOverview, error) {
	refs, err := s.store.Referrals(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &ReferralOverview{Referrals: refs, Summary: model.SummarizeReferrals(refs)}, nil
}

func (s *Service) Notifications(ctx context.Context, customerID string) ([]model.Notification, error) {
	return s.store.UnreadNotifications(ctx, customerID, unreadLimit)
}

// SubmitNps records a 0-10 score from the portal.
func (s *Service) SubmitNps(ctx context.Context, customerID string, score int, comment *string) (*model.NpsResponse, error) {
	if score < 0 || score > 10 {
		return nil, fmt.Errorf("%w: score must be between 0 and 10", ErrInvalidInput)
	}
	if comment != nil && *comment == "" {
		comment = nil
	}
	nps := &model.NpsResponse{
		CustomerID: customerID,
		Score:      score,
		Comment:    comment,
		Trigger:    npsTrigger,
	}
	if err := s.store.InsertNps(ctx, nps); err != nil {
		return nil, err
	}
	return nps, nil
}

// MarkNotificationRead marks one of the customer's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, customerID, notificationID string) error {
	if _, err := uuid.Parse(notificationID); err != nil {
		return ErrNotFound
	}
	err := s.store.MarkNotificationRead(ctx, customerID, notificationID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
