package grpc

import (
	"context"

	"medequip-marketplace/internal/service"

	"google.golang.org/grpc"
)

const disputeServiceName = apiPackage + ".DisputeService"

type DisputeServiceServer interface {
	OpenDispute(ctx context.Context, req *OpenDisputeRequest) (*DisputeResponse, error)
	AddMessage(ctx context.Context, req *AddMessageRequest) (*DisputeMessageResponse, error)
	EscalateDispute(ctx context.Context, req *EscalateDisputeRequest) (*DisputeResponse, error)
	GetDispute(ctx context.Context, req *IDRequest) (*DisputeResponse, error)
	ListForOrganization(ctx context.Context, req *ListDisputesRequest) (*DisputeListResponse, error)
	ListForProvider(ctx context.Context, req *ListDisputesRequest) (*DisputeListResponse, error)
	ListMessages(ctx context.Context, req *IDRequest) (*DisputeMessageListResponse, error)
}

var DisputeServiceDesc = grpc.ServiceDesc{
	ServiceName: disputeServiceName,
	HandlerType: (*DisputeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(disputeServiceName, "OpenDispute", DisputeServiceServer.OpenDispute),
		unaryMethod(disputeServiceName, "AddMessage", DisputeServiceServer.AddMessage),
		unaryMethod(disputeServiceName, "EscalateDispute", DisputeServiceServer.EscalateDispute),
		unaryMethod(disputeServiceName, "GetDispute", DisputeServiceServer.GetDispute),
		unaryMethod(disputeServiceName, "ListForOrganization", DisputeServiceServer.ListForOrganization),
		unaryMethod(disputeServiceName, "ListForProvider", DisputeServiceServer.ListForProvider),
		unaryMethod(disputeServiceName, "ListMessages", DisputeServiceServer.ListMessages),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medequip/api/v1/dispute.json",
}

type DisputeHandler struct {
	svc service.DisputeService
}

func NewDisputeHandler(svc service.DisputeService) *DisputeHandler {
	return &DisputeHandler{svc: svc}
}

func (h *DisputeHandler) OpenDispute(ctx context.Context, req *OpenDisputeRequest) (*DisputeResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	d, err := h.svc.Open(ctx, caller, *req)
	if err != nil {
		return nil, err
	}
	return &DisputeResponse{Dispute: d}, nil
}

func (h *DisputeHandler) AddMessage(ctx context.Context, req *AddMessageRequest) (*DisputeMessageResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	m, err := h.svc.AddMessage(ctx, caller, req.DisputeID, req.Content)
	if err != nil {
		return nil, err
	}
	return &DisputeMessageResponse{Message: m}, nil
}

func (h *DisputeHandler) EscalateDispute(ctx context.Context, req *EscalateDisputeRequest) (*DisputeResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	d, err := h.svc.Escalate(ctx, caller, req.DisputeID, req.Reason)
	if err != nil {
		return nil, err
	}
	return &DisputeResponse{Dispute: d}, nil
}

func (h *DisputeHandler) GetDispute(ctx context.Context, req *IDRequest) (*DisputeResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	d, err := h.svc.Get(ctx, caller, req.ID)
	if err != nil {
		return nil, err
	}
	return &DisputeResponse{Dispute: d}, nil
}

func (h *DisputeHandler) ListForOrganization(ctx context.Context, req *ListDisputesRequest) (*DisputeListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.svc.ListForOrganization(ctx, caller, req.OrganizationID, req.Status)
	if err != nil {
		return nil, err
	}
	return &DisputeListResponse{Disputes: list}, nil
}

func (h *DisputeHandler) ListForProvider(ctx context.Context, req *ListDisputesRequest) (*DisputeListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.svc.ListForProvider(ctx, caller, req.OrganizationID, req.Status)
	if err != nil {
		return nil, err
	}
	return &DisputeListResponse{Disputes: list}, nil
}

func (h *DisputeHandler) ListMessages(ctx context.Context, req *IDRequest) (*DisputeMessageListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := h.svc.ListMessages(ctx, caller, req.ID)
	if err != nil {
		return nil, err
	}
	return &DisputeMessageListResponse{Messages: msgs}, nil
}
