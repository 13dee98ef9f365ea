package grpc

import (
	"context"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/service"

	"google.golang.org/grpc"
)

const quoteServiceName = apiPackage + ".QuoteService"

type QuoteServiceServer interface {
	SubmitQuote(ctx context.Context, req *SubmitQuoteRequest) (*QuoteResponse, error)
	UpdateQuote(ctx context.Context, req *UpdateQuoteRequest) (*QuoteResponse, error)
	AcceptQuote(ctx context.Context, req *IDRequest) (*AcceptQuoteResponse, error)
	DeclineServiceRequest(ctx context.Context, req *DeclineServiceRequestRequest) (*DeclineServiceRequestResponse, error)
	GetQuote(ctx context.Context, req *IDRequest) (*QuoteResponse, error)
	ListForServiceRequest(ctx context.Context, req *IDRequest) (*QuoteListResponse, error)
	ListForProvider(ctx context.Context, req *ListQuotesRequest) (*QuoteListResponse, error)
	GetQuoteStats(ctx context.Context, req *OrganizationRequest) (*domain.QuoteStats, error)
}

var QuoteServiceDesc = grpc.ServiceDesc{
	ServiceName: quoteServiceName,
	HandlerType: (*QuoteServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(quoteServiceName, "SubmitQuote", QuoteServiceServer.SubmitQuote),
		unaryMethod(quoteServiceName, "UpdateQuote", QuoteServiceServer.UpdateQuote),
		unaryMethod(quoteServiceName, "AcceptQuote", QuoteServiceServer.AcceptQuote),
		unaryMethod(quoteServiceName, "DeclineServiceRequest", QuoteServiceServer.DeclineServiceRequest),
		unaryMethod(quoteServiceName, "GetQuote", QuoteServiceServer.GetQuote),
		unaryMethod(quoteServiceName, "ListForServiceRequest", QuoteServiceServer.ListForServiceRequest),
		unaryMethod(quoteServiceName, "ListForProvider", QuoteServiceServer.ListForProvider),
		unaryMethod(quoteServiceName, "GetQuoteStats", QuoteServiceServer.GetQuoteStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medequip/api/v1/quote.json",
}

type QuoteHandler struct {
	svc service.QuoteService
}

func NewQuoteHandler(svc service.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

func (h *QuoteHandler) SubmitQuote(ctx context.Context, req *SubmitQuoteRequest) (*QuoteResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q, err := h.svc.Submit(ctx, caller, *req)
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{Quote: q}, nil
}

func (h *QuoteHandler) UpdateQuote(ctx context.Context, req *UpdateQuoteRequest) (*QuoteResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q, err := h.svc.Update(ctx, caller, *req)
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{Quote: q}, nil
}

func (h *QuoteHandler) AcceptQuote(ctx context.Context, req *IDRequest) (*AcceptQuoteResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.svc.Accept(ctx, caller, req.ID)
}

func (h *QuoteHandler) DeclineServiceRequest(ctx context.Context, req *DeclineServiceRequestRequest) (*DeclineServiceRequestResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	d, err := h.svc.Decline(ctx, caller, req.ServiceRequestID, req.ProviderID, req.Reason)
	if err != nil {
		return nil, err
	}
	return &DeclineServiceRequestResponse{Decline: d}, nil
}

func (h *QuoteHandler) GetQuote(ctx context.Context, req *IDRequest) (*QuoteResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q, err := h.svc.Get(ctx, caller, req.ID)
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{Quote: q}, nil
}

func (h *QuoteHandler) ListForServiceRequest(ctx context.Context, req *IDRequest) (*QuoteListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	quotes, err := h.svc.ListForServiceRequest(ctx, caller, req.ID)
	if err != nil {
		return nil, err
	}
	return &QuoteListResponse{Quotes: quotes}, nil
}

func (h *QuoteHandler) ListForProvider(ctx context.Context, req *ListQuotesRequest) (*QuoteListResponse, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	quotes, err := h.svc.ListForProvider(ctx, caller, req.OrganizationID, req.Status)
	if err != nil {
		return nil, err
	}
	return &QuoteListResponse{Quotes: quotes}, nil
}

func (h *QuoteHandler) GetQuoteStats(ctx context.Context, req *OrganizationRequest) (*domain.QuoteStats, error) {
	caller, err := IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.svc.Stats(ctx, caller, req.OrganizationID)
}
