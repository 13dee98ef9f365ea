package grpc

import (
	"context"

	"medequip-marketplace/internal/service"

	"google.golang.org/grpc"
)

const serviceRequestServiceName = apiPackage + ".ServiceRequestService"

type ServiceRequestServiceServer interface {
	CreateServiceRequest(ctx context.Context, req *CreateServiceRequestRequest) (*ServiceRequestResponse, error)
	GetServiceRequest(ctx context.Context, req *IDRequest) (*ServiceRequestResponse, error)
	TransitionStatus(ctx context.Context, req *TransitionStatusRequest) (*ServiceRequestResponse, error)
	ListForOrganization(ctx context.Context, req *ListServiceRequestsRequest) (*ServiceRequestListResponse, error)
	ListForProvider(ctx context.Context, req *ListServiceRequestsRequest) (*ServiceRequestListResponse, error)
}

var ServiceRequestServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceRequestServiceName,
	HandlerType: (*ServiceRequestServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(serviceRequestServiceName, "CreateServiceRequest", ServiceRequestServiceServer.CreateServiceRequest),
		unaryMethod(serviceRequestServiceName, "GetServiceRequest", ServiceRequestServiceServer.GetServiceRequest),
		unaryMethod(serviceRequestServiceName, "TransitionStatus", ServiceRequestServiceServer.TransitionStatus),
		unaryMethod(serviceRequestServiceName, "ListForOrganization", ServiceRequestServiceServer.ListForOrganization),
		unaryMethod(serviceRequestServiceName, "ListForProvider", ServiceRequestServiceServer.ListForProvider),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medequip/api/v1/service_request.json",
}

type ServiceRequestHandler struct {
	svc service.ServiceRequestService
}

func NewServiceRequestHandler(svc service.ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{svc: svc}
}

func (h *ServiceRequestHandler) CreateServiceRequest(ctx context.Context, req *CreateServiceRequestRequest) (*ServiceRequestResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sr, err := h.svc.Create(ctx, caller, *req)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestResponse{ServiceRequest: sr}, nil
}

func (h *ServiceRequestHandler) GetServiceRequest(ctx context.Context, req *IDRequest) (*ServiceRequestResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sr, err := h.svc.Get(ctx, caller, req.ID)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestResponse{ServiceRequest: sr}, nil
}

func (h *ServiceRequestHandler) TransitionStatus(ctx context.Context, req *TransitionStatusRequest) (*ServiceRequestResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sr, err := h.svc.Transition(ctx, caller, req.ID, req.Status, req.Note)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestResponse{ServiceRequest: sr}, nil
}

func (h *ServiceRequestHandler) ListForOrganization(ctx context.Context, req *ListServiceRequestsRequest) (*ServiceRequestListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.svc.ListForOrganization(ctx, caller, req.OrganizationID, req.Status)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestListResponse{ServiceRequests: list}, nil
}

func (h *ServiceRequestHandler) ListForProvider(ctx context.Context, req *ListServiceRequestsRequest) (*ServiceRequestListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.svc.ListForProvider(ctx, caller, req.OrganizationID, req.Status)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestListResponse{ServiceRequests: list}, nil
}
