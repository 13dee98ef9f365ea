package grpc

import (
	"context"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/service"

	"google.golang.org/grpc"
)

const adminServiceName = apiPackage + ".AdminService"

// AdminServiceServer is the platform back office: arbitration, provider
// review and the analytics dashboards.
type AdminServiceServer interface {
	ListDisputes(ctx context.Context, req *ListDisputesRequest) (*DisputeListResponse, error)
	ResolveDispute(ctx context.Context, req *ResolveDisputeRequest) (*DisputeResponse, error)
	ReassignProvider(ctx context.Context, req *ReassignProviderRequest) (*ServiceRequestResponse, error)

	GetProvider(ctx context.Context, req *IDRequest) (*ProviderResponse, error)
	ListProviders(ctx context.Context, req *Empty) (*ProviderListResponse, error)
	ApproveProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error)
	RejectProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error)
	SuspendProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error)
	ReinstateProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error)

	GetOverview(ctx context.Context, req *Empty) (*domain.PlatformOverview, error)
	GetGrowth(ctx context.Context, req *WindowRequest) (*GrowthResponse, error)
	GetServiceMetrics(ctx context.Context, req *WindowRequest) (*ServiceMetricsResponse, error)
	GetRevenue(ctx context.Context, req *LimitRequest) (*domain.RevenueBreakdown, error)
	GetTopPerformers(ctx context.Context, req *LimitRequest) (*domain.TopPerformers, error)
	GetPlatformHealth(ctx context.Context, req *Empty) (*domain.PlatformHealth, error)
	ListBottlenecks(ctx context.Context, req *LimitRequest) (*ServiceRequestListResponse, error)
}

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: adminServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(adminServiceName, "ListDisputes", AdminServiceServer.ListDisputes),
		unaryMethod(adminServiceName, "ResolveDispute", AdminServiceServer.ResolveDispute),
		unaryMethod(adminServiceName, "ReassignProvider", AdminServiceServer.ReassignProvider),
		unaryMethod(adminServiceName, "GetProvider", AdminServiceServer.GetProvider),
		unaryMethod(adminServiceName, "ListProviders", AdminServiceServer.ListProviders),
		unaryMethod(adminServiceName, "ApproveProvider", AdminServiceServer.ApproveProvider),
		unaryMethod(adminServiceName, "RejectProvider", AdminServiceServer.RejectProvider),
		unaryMethod(adminServiceName, "SuspendProvider", AdminServiceServer.SuspendProvider),
		unaryMethod(adminServiceName, "ReinstateProvider", AdminServiceServer.ReinstateProvider),
		unaryMethod(adminServiceName, "GetOverview", AdminServiceServer.GetOverview),
		unaryMethod(adminServiceName, "GetGrowth", AdminServiceServer.GetGrowth),
		unaryMethod(adminServiceName, "GetServiceMetrics", AdminServiceServer.GetServiceMetrics),
		unaryMethod(adminServiceName, "GetRevenue", AdminServiceServer.GetRevenue),
		unaryMethod(adminServiceName, "GetTopPerformers", AdminServiceServer.GetTopPerformers),
		unaryMethod(adminServiceName, "GetPlatformHealth", AdminServiceServer.GetPlatformHealth),
		unaryMethod(adminServiceName, "ListBottlenecks", AdminServiceServer.ListBottlenecks),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medequip/api/v1/admin.json",
}

type AdminHandler struct {
	disputeSvc   service.DisputeService
	providerSvc  service.ProviderAdminService
	analyticsSvc service.AnalyticsService
}

func NewAdminHandler(disputeSvc service.DisputeService, providerSvc service.ProviderAdminService, analyticsSvc service.AnalyticsService) *AdminHandler {
	return &AdminHandler{disputeSvc: disputeSvc, providerSvc: providerSvc, analyticsSvc: analyticsSvc}
}

func (h *AdminHandler) ListDisputes(ctx context.Context, req *ListDisputesRequest) (*DisputeListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.disputeSvc.ListAll(ctx, caller, req.Status)
	if err != nil {
		return nil, err
	}
	return &DisputeListResponse{Disputes: list}, nil
}

func (h *AdminHandler) ResolveDispute(ctx context.Context, req *ResolveDisputeRequest) (*DisputeResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	d, err := h.disputeSvc.Resolve(ctx, caller, *req)
	if err != nil {
		return nil, err
	}
	return &DisputeResponse{Dispute: d}, nil
}

func (h *AdminHandler) ReassignProvider(ctx context.Context, req *ReassignProviderRequest) (*ServiceRequestResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sr, err := h.disputeSvc.ReassignProvider(ctx, caller, req.ServiceRequestID, req.ProviderID, req.Reason)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestResponse{ServiceRequest: sr}, nil
}

func (h *AdminHandler) GetProvider(ctx context.Context, req *IDRequest) (*ProviderResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.providerSvc.GetProvider(ctx, caller, req.ID)
	if err != nil {
		return nil, err
	}
	return &ProviderResponse{Provider: p}, nil
}

func (h *AdminHandler) ListProviders(ctx context.Context, _ *Empty) (*ProviderListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.providerSvc.ListProviders(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &ProviderListResponse{Providers: list}, nil
}

func (h *AdminHandler) providerAction(ctx context.Context,
	act func(context.Context, domain.Identity) (*domain.Provider, error)) (*ProviderResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := act(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &ProviderResponse{Provider: p}, nil
}

func (h *AdminHandler) ApproveProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error) {
	return h.providerAction(ctx, func(ctx context.Context, caller domain.Identity) (*domain.Provider, error) {
		return h.providerSvc.ApproveProvider(ctx, caller, req.ProviderID)
	})
}

func (h *AdminHandler) RejectProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error) {
	return h.providerAction(ctx, func(ctx context.Context, caller domain.Identity) (*domain.Provider, error) {
		return h.providerSvc.RejectProvider(ctx, caller, req.ProviderID, req.Reason)
	})
}

func (h *AdminHandler) SuspendProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error) {
	return h.providerAction(ctx, func(ctx context.Context, caller domain.Identity) (*domain.Provider, error) {
		return h.providerSvc.SuspendProvider(ctx, caller, req.ProviderID, req.Reason)
	})
}

func (h *AdminHandler) ReinstateProvider(ctx context.Context, req *ProviderActionRequest) (*ProviderResponse, error) {
	return h.providerAction(ctx, func(ctx context.Context, caller domain.Identity) (*domain.Provider, error) {
		return h.providerSvc.ReinstateProvider(ctx, caller, req.ProviderID)
	})
}

func (h *AdminHandler) GetOverview(ctx context.Context, _ *Empty) (*domain.PlatformOverview, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.analyticsSvc.Overview(ctx, caller)
}

func (h *AdminHandler) GetGrowth(ctx context.Context, req *WindowRequest) (*GrowthResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	points, err := h.analyticsSvc.Growth(ctx, caller, req.Months)
	if err != nil {
		return nil, err
	}
	return &GrowthResponse{Points: points}, nil
}

func (h *AdminHandler) GetServiceMetrics(ctx context.Context, req *WindowRequest) (*ServiceMetricsResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	points, err := h.analyticsSvc.ServiceMetrics(ctx, caller, req.Months)
	if err != nil {
		return nil, err
	}
	return &ServiceMetricsResponse{Points: points}, nil
}

func (h *AdminHandler) GetRevenue(ctx context.Context, req *LimitRequest) (*domain.RevenueBreakdown, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.analyticsSvc.RevenueBreakdown(ctx, caller, req.Limit)
}

func (h *AdminHandler) GetTopPerformers(ctx context.Context, req *LimitRequest) (*domain.TopPerformers, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.analyticsSvc.TopPerformers(ctx, caller, req.Limit)
}

func (h *AdminHandler) GetPlatformHealth(ctx context.Context, _ *Empty) (*domain.PlatformHealth, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.analyticsSvc.PlatformHealth(ctx, caller)
}

func (h *AdminHandler) ListBottlenecks(ctx context.Context, req *LimitRequest) (*ServiceRequestListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.analyticsSvc.ListBottlenecks(ctx, caller, req.Limit)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestListResponse{ServiceRequests: list}, nil
}
