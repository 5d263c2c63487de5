package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	dErrors "supplierhub/pkg/domain-errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so error keys match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError runs the struct tags and folds failures into a single
// CodeValidation error keyed by JSON field name.
func validationError(req any, msg string, extra map[string][]string) error {
	fields := map[string][]string{}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request")
		}
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
		}
	}
	for k, v := range extra {
		fields[k] = append(fields[k], v...)
	}
	if len(fields) == 0 {
		return nil
	}
	return dErrors.NewValidation(msg, fields)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return "The " + field + " field is required."
	case "max":
		return "The " + field + " must not be greater than " + fe.Param() + " characters."
	case "email":
		return "The " + field + " must be a valid email address."
	case "uuid":
		return "The " + field + " must be a valid UUID."
	case "oneof":
		return "The " + field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	}
	return "The " + field + " is invalid."
}

// SubmitRequest is the body of POST /contacts.
type SubmitRequest struct {
	CompanyID      string `json:"company_id" validate:"required,uuid"`
	Subject        string `json:"subject" validate:"max=255"`
	Message        string `json:"message" validate:"required,max=1000"`
	CompanyName    string `json:"company_name" validate:"required,max=255"`
	ContactPerson  string `json:"contact_person" validate:"required,max=255"`
	Email          string `json:"email" validate:"required,max=255,email"`
	Phone          string `json:"phone" validate:"omitempty,max=50"`
	Country        string `json:"country" validate:"required,max=100"`
	RecaptchaToken string `json:"recaptcha_token" validate:"required"`
}

func (r *SubmitRequest) Normalize() {
	if r == nil {
		return
	}
	r.CompanyID = strings.TrimSpace(r.CompanyID)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.ContactPerson = strings.TrimSpace(r.ContactPerson)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Country = strings.TrimSpace(r.Country)
	r.RecaptchaToken = strings.TrimSpace(r.RecaptchaToken)
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validationError(r, "The given data was invalid.", nil)
}

// RespondRequest is the body of POST /contacts/{id}/respond.
type RespondRequest struct {
	ResponseMessage  string `json:"response_message" validate:"required,max=2000"`
	ShareFullContact *bool  `json:"share_full_contact" validate:"required"`
}

func (r *RespondRequest) Normalize() {
	if r == nil {
		return
	}
	r.ResponseMessage = strings.TrimSpace(r.ResponseMessage)
}

func (r *RespondRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validationError(r, "The given data was invalid.", nil)
}

// Share reports the share_full_contact flag, false when absent.
func (r *RespondRequest) Share() bool {
	return r.ShareFullContact != nil && *r.ShareFullContact
}

// ToggleVisibilityRequest is the body of POST /contacts/toggle-visibility.
type ToggleVisibilityRequest struct {
	ShowContactInfo *bool `json:"show_contact_info" validate:"required"`
}

func (r *ToggleVisibilityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validationError(r, "The given data was invalid.", nil)
}

// ReviewAction is the admin's moderation decision.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// ReviewRequest is the body of POST /admin/contacts/{id}/review.
type ReviewRequest struct {
	Action     ReviewAction `json:"action" validate:"required,oneof=approve reject"`
	AdminNotes string       `json:"admin_notes" validate:"max=2000"`
}

func (r *ReviewRequest) Normalize() {
	if r == nil {
		return
	}
	r.Action = ReviewAction(strings.ToLower(strings.TrimSpace(string(r.Action))))
	r.AdminNotes = strings.TrimSpace(r.AdminNotes)
}

func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validationError(r, "The given data was invalid.", nil)
}

// maxUnlockFee is the largest amount a NUMERIC(10,2) column holds.
var maxUnlockFee = decimal.RequireFromString("99999999.99")

// UnlockRequest is the body of POST /admin/contacts/{id}/unlock. The fee
// accepts a JSON number or string and may be omitted for a free unlock.
type UnlockRequest struct {
	UnlockFee *decimal.Decimal `json:"unlock_fee"`
}

func (r *UnlockRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	extra := map[string][]string{}
	if r.UnlockFee != nil {
		switch {
		case r.UnlockFee.IsNegative():
			extra["unlock_fee"] = []string{"The unlock fee must be at least 0."}
		case r.UnlockFee.Round(2).GreaterThan(maxUnlockFee):
			extra["unlock_fee"] = []string{"The unlock fee must not be greater than " + maxUnlockFee.StringFixed(2) + "."}
		}
	}
	return validationError(r, "The given data was invalid.", extra)
}

// OverrideStatusRequest is the body of POST /admin/contacts/{id}/status.
type OverrideStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved responded rejected unlocked"`
	Reason string `json:"reason" validate:"required,max=1000"`
}

func (r *OverrideStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *OverrideStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validationError(r, "The given data was invalid.", nil)
}
