package service

import (
	"errors"
	"strings"
	"time"

	"medequip-marketplace/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

type CreateServiceRequestInput struct {
	OrganizationID string             `json:"organization_id" validate:"required"`
	EquipmentID    string             `json:"equipment_id" validate:"required,max=128"`
	Type           domain.ServiceType `json:"type" validate:"required,oneof=repair maintenance calibration installation inspection"`
	Priority       domain.Priority    `json:"priority" validate:"required,oneof=low medium high urgent"`
	Description    string             `json:"description" validate:"required,max=5000"`
	PreferredDate  *time.Time         `json:"preferred_date,omitempty"`
}

type SubmitQuoteInput struct {
	ServiceRequestID      string     `json:"service_request_id" validate:"required"`
	ProviderID            string     `json:"provider_id" validate:"required"`
	Amount                int64      `json:"amount" validate:"gt=0"`
	Currency              string     `json:"currency" validate:"required,len=3,alpha,uppercase"`
	ValidUntil            *time.Time `json:"valid_until,omitempty"`
	Notes                 *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	EstimatedDurationDays *int       `json:"estimated_duration_days,omitempty" validate:"omitempty,min=1,max=365"`
	AvailableStartDate    *time.Time `json:"available_start_date,omitempty"`
}

// UpdateQuoteInput patches a pending quote; nil fields are left unchanged.
type UpdateQuoteInput struct {
	QuoteID               string     `json:"quote_id" validate:"required"`
	Amount                *int64     `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Currency              *string    `json:"currency,omitempty" validate:"omitempty,len=3,alpha,uppercase"`
	ValidUntil            *time.Time `json:"valid_until,omitempty"`
	Notes                 *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	EstimatedDurationDays *int       `json:"estimated_duration_days,omitempty" validate:"omitempty,min=1,max=365"`
	AvailableStartDate    *time.Time `json:"available_start_date,omitempty"`
}

type OpenDisputeInput struct {
	ServiceRequestID string             `json:"service_request_id" validate:"required"`
	Type             domain.DisputeType `json:"type" validate:"required,oneof=quality delay billing no_show other"`
	Description      string             `json:"description" validate:"required,max=5000"`
}

type ResolveDisputeInput struct {
	DisputeID    string            `json:"dispute_id" validate:"required"`
	Resolution   domain.Resolution `json:"resolution" validate:"required,oneof=refund partial_refund dismiss re_assign"`
	ReasonVi     string            `json:"reason_vi" validate:"required,notblank,max=2000"`
	ReasonEn     string            `json:"reason_en,omitempty" validate:"max=2000"`
	RefundAmount *int64            `json:"refund_amount,omitempty"`
}

// validateInput runs struct tags and converts failures into VALIDATION errors
// naming the offending fields.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ErrValidation.Wrap(err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	list := strings.Join(fields, ", ")
	return domain.ErrValidation.WithDetail("trường không hợp lệ "+list, "invalid fields "+list).Wrap(err)
}

func trimmedLen(s string) int {
	return len([]rune(strings.TrimSpace(s)))
}
