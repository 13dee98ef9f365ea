package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable error kind surfaced to callers.
type ErrorCode string

const (
	CodeUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeValidation        ErrorCode = "VALIDATION"
	CodeInternal          ErrorCode = "INTERNAL"
)

// Message is a bilingual message bundle (Vietnamese + English).
type Message struct {
	Vi string `json:"vi"`
	En string `json:"en"`
}

// Error is the single error type returned by guards, state machines and services.
// Reason narrows Code (e.g. CONFLICT/SERVICE_REQUEST_ALREADY_ACCEPTED).
type Error struct {
	Code    ErrorCode `json:"code"`
	Reason  string    `json:"reason,omitempty"`
	Message Message   `json:"message"`
	Err     error     `json:"-"`
}

func NewError(code ErrorCode, reason, vi, en string) *Error {
	return &Error{Code: code, Reason: reason, Message: Message{Vi: vi, En: en}}
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s/%s: %s", e.Code, e.Reason, e.Message.En)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message.En)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code, and on Reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithDetail returns a copy of e with the detail appended to both messages.
func (e *Error) WithDetail(vi, en string) *Error {
	cp := *e
	cp.Message = Message{Vi: e.Message.Vi + ": " + vi, En: e.Message.En + ": " + en}
	return &cp
}

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// AsError returns the first *Error in the chain; foreign errors become INTERNAL.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return ErrInternal.Wrap(err)
}

var (
	ErrUnauthenticated = NewError(CodeUnauthenticated, "",
		"Bạn cần đăng nhập để thực hiện thao tác này",
		"Authentication is required")
	ErrForbidden = NewError(CodeForbidden, "",
		"Bạn không có quyền thực hiện thao tác này",
		"You do not have permission to perform this action")
	ErrNotFound = NewError(CodeNotFound, "",
		"Không tìm thấy tài nguyên",
		"Resource not found")
	ErrInvalidTransition = NewError(CodeInvalidTransition, "",
		"Chuyển trạng thái không hợp lệ",
		"Status transition is not allowed")
	ErrConflict = NewError(CodeConflict, "",
		"Xung đột dữ liệu, vui lòng thử lại",
		"The operation conflicts with the current state")
	ErrValidation = NewError(CodeValidation, "",
		"Dữ liệu không hợp lệ",
		"Invalid input")
	ErrInternal = NewError(CodeInternal, "",
		"Lỗi hệ thống",
		"Internal error")

	ErrTxConflict = NewError(CodeConflict, "TX_SERIALIZATION_FAILURE",
		"Giao dịch bị xung đột với một thao tác đồng thời",
		"Transaction conflicted with a concurrent operation")

	ErrServiceRequestNotFound = NewError(CodeNotFound, "SERVICE_REQUEST_NOT_FOUND",
		"Không tìm thấy yêu cầu dịch vụ",
		"Service request not found")
	ErrServiceRequestAlreadyAccepted = NewError(CodeConflict, "SERVICE_REQUEST_ALREADY_ACCEPTED",
		"Yêu cầu dịch vụ đã chấp nhận một báo giá khác",
		"Service request has already accepted a quote")
	ErrServiceRequestNotQuotable = NewError(CodeInvalidTransition, "SERVICE_REQUEST_NOT_QUOTABLE",
		"Yêu cầu dịch vụ không còn nhận báo giá",
		"Service request is not accepting quotes")

	ErrQuoteNotFound = NewError(CodeNotFound, "QUOTE_NOT_FOUND",
		"Không tìm thấy báo giá",
		"Quote not found")
	ErrQuoteNotEditable = NewError(CodeInvalidTransition, "QUOTE_NOT_EDITABLE",
		"Chỉ có thể sửa báo giá đang chờ",
		"Only pending quotes can be edited")
	ErrQuoteNotAcceptable = NewError(CodeInvalidTransition, "QUOTE_NOT_ACCEPTABLE",
		"Báo giá không còn có thể chấp nhận",
		"Quote can no longer be accepted")
	ErrDuplicateQuote = NewError(CodeConflict, "DUPLICATE_QUOTE",
		"Nhà cung cấp đã có báo giá đang chờ cho yêu cầu này",
		"Provider already has a pending quote on this request")
	ErrDeclineReasonTooShort = NewError(CodeValidation, "DECLINE_REASON_TOO_SHORT",
		"Lý do từ chối phải có ít nhất 10 ký tự",
		"Decline reason must be at least 10 characters")

	ErrProviderNotFound = NewError(CodeNotFound, "PROVIDER_NOT_FOUND",
		"Không tìm thấy nhà cung cấp",
		"Provider not found")
	ErrProviderNotEligible = NewError(CodeForbidden, "PROVIDER_NOT_ELIGIBLE",
		"Nhà cung cấp chưa được xác minh hoặc không hoạt động",
		"Provider is not active and verified")
	ErrSameOrganization = NewError(CodeForbidden, "SAME_ORGANIZATION",
		"Nhà cung cấp không thể báo giá cho yêu cầu của chính tổ chức mình",
		"A provider cannot quote on its own organization's request")

	ErrDisputeNotFound = NewError(CodeNotFound, "DISPUTE_NOT_FOUND",
		"Không tìm thấy khiếu nại",
		"Dispute not found")
	ErrDisputeAlreadyResolved = NewError(CodeConflict, "DISPUTE_ALREADY_RESOLVED",
		"Khiếu nại đã được giải quyết",
		"Dispute has already been resolved")

	ErrMembershipNotFound = NewError(CodeNotFound, "MEMBERSHIP_NOT_FOUND",
		"Không tìm thấy thành viên",
		"Member not found")
	ErrLastOwner = NewError(CodeConflict, "LAST_OWNER",
		"Tổ chức phải có ít nhất một chủ sở hữu",
		"Organization must keep at least one owner")
	ErrCannotManageMember = NewError(CodeForbidden, "CANNOT_MANAGE_MEMBER",
		"Bạn không thể thay đổi vai trò của thành viên này",
		"You cannot manage this member")
)
