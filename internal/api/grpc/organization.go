package grpc

import (
	"context"

	"medequip-marketplace/internal/service"

	"google.golang.org/grpc"
)

const organizationServiceName = apiPackage + ".OrganizationService"

type OrganizationServiceServer interface {
	ListMembers(ctx context.Context, req *OrganizationRequest) (*MemberListResponse, error)
	UpdateMemberRole(ctx context.Context, req *UpdateMemberRoleRequest) (*MemberResponse, error)
	RemoveMember(ctx context.Context, req *MemberRequest) (*Empty, error)
}

var OrganizationServiceDesc = grpc.ServiceDesc{
	ServiceName: organizationServiceName,
	HandlerType: (*OrganizationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(organizationServiceName, "ListMembers", OrganizationServiceServer.ListMembers),
		unaryMethod(organizationServiceName, "UpdateMemberRole", OrganizationServiceServer.UpdateMemberRole),
		unaryMethod(organizationServiceName, "RemoveMember", OrganizationServiceServer.RemoveMember),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medequip/api/v1/organization.json",
}

type OrganizationHandler struct {
	memberSvc service.MembershipService
}

func NewOrganizationHandler(memberSvc service.MembershipService) *OrganizationHandler {
	return &OrganizationHandler{memberSvc: memberSvc}
}

func (h *OrganizationHandler) ListMembers(ctx context.Context, req *OrganizationRequest) (*MemberListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	members, err := h.memberSvc.ListMembers(ctx, caller, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	return &MemberListResponse{Members: members}, nil
}

func (h *OrganizationHandler) UpdateMemberRole(ctx context.Context, req *UpdateMemberRoleRequest) (*MemberResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	m, err := h.memberSvc.UpdateMemberRole(ctx, caller, req.OrganizationID, req.UserID, req.Role)
	if err != nil {
		return nil, err
	}
	return &MemberResponse{Member: m}, nil
}

func (h *OrganizationHandler) RemoveMember(ctx context.Context, req *MemberRequest) (*Empty, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.memberSvc.RemoveMember(ctx, caller, req.OrganizationID, req.UserID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}
