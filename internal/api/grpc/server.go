package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Package name of every service under this transport.
const apiPackage = "medequip.api.v1"

// unaryMethod builds the descriptor for one unary RPC from a method expression
// on the service's server interface. Handler errors leave as gRPC statuses.
func unaryMethod[S any, Req any, Resp any](serviceName, methodName string,
	call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + methodName
	return grpc.MethodDesc{
		MethodName: methodName,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
			}
			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(srv.(S), ctx, req.(*Req))
				if err != nil {
					return nil, ToStatus(ctx, err)
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Handlers bundles every API server so cmd/server registers them in one call.
type Handlers struct {
	ServiceRequests ServiceRequestServiceServer
	Quotes          QuoteServiceServer
	Disputes        DisputeServiceServer
	Organizations   OrganizationServiceServer
	Audit           AuditServiceServer
	Admin           AdminServiceServer
}

func RegisterAll(s grpc.ServiceRegistrar, h Handlers) {
	s.RegisterService(&ServiceRequestServiceDesc, h.ServiceRequests)
	s.RegisterService(&QuoteServiceDesc, h.Quotes)
	s.RegisterService(&DisputeServiceDesc, h.Disputes)
	s.RegisterService(&OrganizationServiceDesc, h.Organizations)
	s.RegisterService(&AuditServiceDesc, h.Audit)
	s.RegisterService(&AdminServiceDesc, h.Admin)
}
