package grpc

import (
	"context"

	"medequip-marketplace/internal/service"

	"google.golang.org/grpc"
)

const auditServiceName = apiPackage + ".AuditService"

type AuditServiceServer interface {
	ListForOrganization(ctx context.Context, req *AuditQuery) (*AuditListResponse, error)
	ListForResource(ctx context.Context, req *AuditQuery) (*AuditListResponse, error)
	ListAll(ctx context.Context, req *AuditQuery) (*AuditListResponse, error)
}

var AuditServiceDesc = grpc.ServiceDesc{
	ServiceName: auditServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(auditServiceName, "ListForOrganization", AuditServiceServer.ListForOrganization),
		unaryMethod(auditServiceName, "ListForResource", AuditServiceServer.ListForResource),
		unaryMethod(auditServiceName, "ListAll", AuditServiceServer.ListAll),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medequip/api/v1/audit.json",
}

type AuditHandler struct {
	svc service.AuditService
}

func NewAuditHandler(svc service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) ListForOrganization(ctx context.Context, req *AuditQuery) (*AuditListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := h.svc.ListForOrganization(ctx, caller, req.OrganizationID, req.filter())
	if err != nil {
		return nil, err
	}
	return &AuditListResponse{Entries: mapAuditEntries(entries)}, nil
}

func (h *AuditHandler) ListForResource(ctx context.Context, req *AuditQuery) (*AuditListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := h.svc.ListForResource(ctx, caller, req.ResourceID, req.filter())
	if err != nil {
		return nil, err
	}
	return &AuditListResponse{Entries: mapAuditEntries(entries)}, nil
}

func (h *AuditHandler) ListAll(ctx context.Context, req *AuditQuery) (*AuditListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	filter := req.filter()
	filter.OrganizationID = req.OrganizationID
	filter.ResourceID = req.ResourceID
	entries, err := h.svc.ListAll(ctx, caller, filter)
	if err != nil {
		return nil, err
	}
	return &AuditListResponse{Entries: mapAuditEntries(entries)}, nil
}
