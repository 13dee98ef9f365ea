package service

import (
	"context"
	"sort"
	"time"

	"medequip-marketplace/internal/authz"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
	"medequip-marketplace/internal/repository"
	"medequip-marketplace/internal/utils"
)

// AnalyticsSettings bounds the dashboard windows.
type AnalyticsSettings struct {
	DefaultMonths int
	MaxMonths     int
	DefaultTopN   int
	MaxTopN       int
	// Currency is the one summed into PlatformOverview.TotalRevenue.
	Currency string
}

// DefaultAnalyticsSettings mirrors the config defaults.
func DefaultAnalyticsSettings() AnalyticsSettings {
	return AnalyticsSettings{DefaultMonths: 6, MaxMonths: 24, DefaultTopN: 5, MaxTopN: 100, Currency: "VND"}
}

type analyticsService struct {
	store    repository.Store
	settings AnalyticsSettings
	opts     options
}

func NewAnalyticsService(store repository.Store, settings AnalyticsSettings, opts ...Option) AnalyticsService {
	return &analyticsService{store: store, settings: settings, opts: newOptions(opts)}
}

func (s *analyticsService) months(requested int) int {
	if requested <= 0 {
		return s.settings.DefaultMonths
	}
	if requested > s.settings.MaxMonths {
		return s.settings.MaxMonths
	}
	return requested
}

func (s *analyticsService) topN(requested int) int {
	if requested <= 0 {
		return s.settings.DefaultTopN
	}
	if requested > s.settings.MaxTopN {
		return s.settings.MaxTopN
	}
	return requested
}

// completedRevenue keeps accepted quotes whose request completed.
func completedRevenue(facts []domain.RevenueFact) []domain.RevenueFact {
	out := facts[:0:0]
	for _, f := range facts {
		if f.ServiceRequestStatus == domain.ServiceRequestStatusCompleted {
			out = append(out, f)
		}
	}
	return out
}

func (s *analyticsService) Overview(ctx context.Context, caller domain.Identity) (*domain.PlatformOverview, error) {
	logger.EnterMethod("analyticsService.Overview", "user_id", caller.UserID)
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		logger.ExitMethodWithError("analyticsService.Overview", err, "user_id", caller.UserID)
		return nil, err
	}
	a := s.store.Analytics()
	hospitals, err := a.CountOrganizations(ctx, domain.OrganizationTypeHospital)
	if err != nil {
		return nil, err
	}
	providers, err := a.CountProviders(ctx)
	if err != nil {
		return nil, err
	}
	equipment, err := a.CountDistinctEquipment(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := a.CountServiceRequests(ctx)
	if err != nil {
		return nil, err
	}
	facts, err := a.ListRevenueFacts(ctx)
	if err != nil {
		return nil, err
	}

	byCurrency := map[string]int64{}
	for _, f := range completedRevenue(facts) {
		byCurrency[f.Currency] += f.Amount
	}
	overview := &domain.PlatformOverview{
		TotalHospitals:       hospitals,
		TotalProviders:       providers,
		TotalEquipment:       equipment,
		TotalServiceRequests: requests,
		TotalRevenue:         byCurrency[s.settings.Currency],
		RevenueByCurrency:    byCurrency,
	}
	logger.ExitMethod("analyticsService.Overview", "service_requests", requests)
	return overview, nil
}

func (s *analyticsService) Growth(ctx context.Context, caller domain.Identity, months int) ([]domain.GrowthPoint, error) {
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		return nil, err
	}
	months = s.months(months)
	now := s.opts.now()
	since := utils.WindowStart(now, months)

	hospitals, err := s.store.Analytics().ListOrganizationCreations(ctx, domain.OrganizationTypeHospital, since)
	if err != nil {
		return nil, err
	}
	providers, err := s.store.Analytics().ListProviderCreations(ctx, since)
	if err != nil {
		return nil, err
	}

	keys := utils.TrailingMonths(now, months)
	index := make(map[string]int, len(keys))
	points := make([]domain.GrowthPoint, len(keys))
	for i, k := range keys {
		index[k] = i
		points[i].Month = k
	}
	for _, t := range hospitals {
		if i, ok := index[utils.MonthKey(t)]; ok {
			points[i].Hospitals++
		}
	}
	for _, t := range providers {
		if i, ok := index[utils.MonthKey(t)]; ok {
			points[i].Providers++
		}
	}
	return points, nil
}

func (s *analyticsService) ServiceMetrics(ctx context.Context, caller domain.Identity, months int) ([]domain.ServiceMetricsPoint, error) {
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		return nil, err
	}
	months = s.months(months)
	now := s.opts.now()
	facts, err := s.store.Analytics().ListServiceRequestFacts(ctx, utils.WindowStart(now, months))
	if err != nil {
		return nil, err
	}

	keys := utils.TrailingMonths(now, months)
	index := make(map[string]int, len(keys))
	points := make([]domain.ServiceMetricsPoint, len(keys))
	for i, k := range keys {
		index[k] = i
		points[i].Month = k
	}
	for _, f := range facts {
		i, ok := index[utils.MonthKey(f.CreatedAt)]
		if !ok {
			continue
		}
		points[i].Requests++
		switch f.Status {
		case domain.ServiceRequestStatusCompleted:
			points[i].Completed++
		case domain.ServiceRequestStatusCancelled:
			points[i].Cancelled++
		}
	}
	for i := range points {
		points[i].CompletionRate = utils.Ratio(points[i].Completed, points[i].Completed+points[i].Cancelled)
	}
	return points, nil
}

// rankRevenue sorts by revenue descending, then name.
func rankRevenue(totals map[string]*domain.RevenueEntry, limit int) []domain.RevenueEntry {
	out := make([]domain.RevenueEntry, 0, len(totals))
	for _, e := range totals {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RevenueBreakdown groups completed revenue in the configured currency.
func (s *analyticsService) RevenueBreakdown(ctx context.Context, caller domain.Identity, limit int) (*domain.RevenueBreakdown, error) {
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		return nil, err
	}
	facts, err := s.store.Analytics().ListRevenueFacts(ctx)
	if err != nil {
		return nil, err
	}
	hospitals := map[string]*domain.RevenueEntry{}
	providers := map[string]*domain.RevenueEntry{}
	for _, f := range completedRevenue(facts) {
		if f.Currency != s.settings.Currency {
			continue
		}
		h, ok := hospitals[f.HospitalID]
		if !ok {
			h = &domain.RevenueEntry{ID: f.HospitalID, Name: f.HospitalName}
			hospitals[f.HospitalID] = h
		}
		h.Revenue += f.Amount
		h.Jobs++
		p, ok := providers[f.ProviderID]
		if !ok {
			p = &domain.RevenueEntry{ID: f.ProviderID, Name: f.ProviderName}
			providers[f.ProviderID] = p
		}
		p.Revenue += f.Amount
		p.Jobs++
	}
	limit = s.topN(limit)
	return &domain.RevenueBreakdown{
		TopHospitals: rankRevenue(hospitals, limit),
		TopProviders: rankRevenue(providers, limit),
	}, nil
}

func (s *analyticsService) TopPerformers(ctx context.Context, caller domain.Identity, limit int) (*domain.TopPerformers, error) {
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		return nil, err
	}
	limit = s.topN(limit)

	facts, err := s.store.Analytics().ListServiceRequestFacts(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	byOrg := map[string]*domain.HospitalPerformance{}
	for _, f := range facts {
		h, ok := byOrg[f.OrganizationID]
		if !ok {
			h = &domain.HospitalPerformance{OrganizationID: f.OrganizationID, Name: f.OrganizationName}
			byOrg[f.OrganizationID] = h
		}
		h.RequestCount++
	}
	hospitals := make([]domain.HospitalPerformance, 0, len(byOrg))
	for _, h := range byOrg {
		hospitals = append(hospitals, *h)
	}
	sort.Slice(hospitals, func(i, j int) bool {
		if hospitals[i].RequestCount != hospitals[j].RequestCount {
			return hospitals[i].RequestCount > hospitals[j].RequestCount
		}
		return hospitals[i].Name < hospitals[j].Name
	})
	if len(hospitals) > limit {
		hospitals = hospitals[:limit]
	}

	all, err := s.store.Providers().List(ctx)
	if err != nil {
		return nil, err
	}
	providers := make([]domain.ProviderPerformance, 0, len(all))
	for _, p := range all {
		if p.TotalRatings < 1 {
			continue
		}
		providers = append(providers, domain.ProviderPerformance{
			ProviderID:    p.ID,
			Name:          p.Name,
			AverageRating: p.AverageRating,
			TotalRatings:  p.TotalRatings,
		})
	}
	sort.Slice(providers, func(i, j int) bool {
		if providers[i].AverageRating != providers[j].AverageRating {
			return providers[i].AverageRating > providers[j].AverageRating
		}
		if providers[i].TotalRatings != providers[j].TotalRatings {
			return providers[i].TotalRatings > providers[j].TotalRatings
		}
		return providers[i].Name < providers[j].Name
	})
	if len(providers) > limit {
		providers = providers[:limit]
	}
	return &domain.TopPerformers{Hospitals: hospitals, Providers: providers}, nil
}

func (s *analyticsService) PlatformHealth(ctx context.Context, caller domain.Identity) (*domain.PlatformHealth, error) {
	logger.EnterMethod("analyticsService.PlatformHealth", "user_id", caller.UserID)
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		logger.ExitMethodWithError("analyticsService.PlatformHealth", err, "user_id", caller.UserID)
		return nil, err
	}
	now := s.opts.now()

	facts, err := s.store.Analytics().ListServiceRequestFacts(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	var responses []time.Duration
	for _, f := range facts {
		if f.FirstQuoteAt != nil {
			responses = append(responses, f.FirstQuoteAt.Sub(f.CreatedAt))
		}
	}

	disputes, err := s.store.Disputes().List(ctx, repository.DisputeFilter{})
	if err != nil {
		return nil, err
	}
	health := &domain.PlatformHealth{}
	var resolutions []time.Duration
	for _, d := range disputes {
		switch d.Status {
		case domain.DisputeStatusOpen:
			health.OpenDisputes++
		case domain.DisputeStatusEscalated:
			health.EscalatedDisputes++
		case domain.DisputeStatusResolved:
			if d.ResolvedAt != nil {
				resolutions = append(resolutions, d.ResolvedAt.Sub(d.CreatedAt))
			}
		}
	}

	stale, err := s.store.ServiceRequests().ListStale(ctx, now.Add(-domain.BottleneckThreshold), 0)
	if err != nil {
		return nil, err
	}
	health.AvgQuoteResponseDays = utils.AverageDays(responses)
	health.AvgDisputeResolutionDays = utils.AverageDays(resolutions)
	health.BottleneckServiceRequests = len(stale)
	metrics.Bottlenecks(len(stale))
	logger.ExitMethod("analyticsService.PlatformHealth", "bottlenecks", len(stale))
	return health, nil
}

// ListBottlenecks returns stale non-terminal requests, oldest first.
func (s *analyticsService) ListBottlenecks(ctx context.Context, caller domain.Identity, limit int) ([]domain.ServiceRequestView, error) {
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		return nil, err
	}
	now := s.opts.now()
	stale, err := s.store.ServiceRequests().ListStale(ctx, now.Add(-domain.BottleneckThreshold), s.topN(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ServiceRequestView, 0, len(stale))
	for _, sr := range stale {
		out = append(out, domain.NewServiceRequestView(sr, now))
	}
	return out, nil
}
