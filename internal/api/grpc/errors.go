package grpc

import (
	"context"
	"errors"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is reported in ErrorInfo.Domain.
const ErrorDomain = "medequip.vn"

const (
	LocaleVietnamese = "vi-VN"
	LocaleEnglish    = "en-US"
)

func grpcCode(code domain.ErrorCode) codes.Code {
	switch code {
	case domain.CodeUnauthenticated:
		return codes.Unauthenticated
	case domain.CodeForbidden:
		return codes.PermissionDenied
	case domain.CodeNotFound:
		return codes.NotFound
	case domain.CodeInvalidTransition:
		return codes.FailedPrecondition
	case domain.CodeConflict:
		return codes.Aborted
	case domain.CodeValidation:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status carrying ErrorInfo and one
// LocalizedMessage per language. Internal causes are logged, never returned.
func ToStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}

	de := domain.AsError(err)
	if de.Code == domain.CodeInternal {
		logger.ErrorContext(ctx, "internal error", "error", err)
		de = domain.ErrInternal
	}

	reason := de.Reason
	if reason == "" {
		reason = string(de.Code)
	}
	st := status.New(grpcCode(de.Code), de.Message.En)
	detailed, derr := st.WithDetails(
		&errdetails.ErrorInfo{
			Reason:   reason,
			Domain:   ErrorDomain,
			Metadata: map[string]string{"code": string(de.Code)},
		},
		&errdetails.LocalizedMessage{Locale: LocaleVietnamese, Message: de.Message.Vi},
		&errdetails.LocalizedMessage{Locale: LocaleEnglish, Message: de.Message.En},
	)
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorDetails pulls the ErrorInfo and localized messages back out of a status
// error. Clients and tests use it; missing details yield zero values.
func ErrorDetails(err error) (info *errdetails.ErrorInfo, messages map[string]string) {
	messages = map[string]string{}
	st, ok := status.FromError(err)
	if !ok {
		return nil, messages
	}
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			info = v
		case *errdetails.LocalizedMessage:
			messages[v.GetLocale()] = v.GetMessage()
		}
	}
	return info, messages
}
