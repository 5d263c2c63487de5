package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	Expand(s string) string
	GetCompanyID() string
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers contact submission and masking steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &contactSteps{tc: tc}

	ctx.Step(`^a verified supplier company$`, steps.verifiedCompany)
	ctx.Step(`^I submit a contact request from "([^"]*)"$`, steps.submitFrom)
	ctx.Step(`^I submit a contact request to company "([^"]*)" from "([^"]*)"$`, steps.submitTo)
	ctx.Step(`^I view the masked contact details of the company$`, steps.viewMasked)
	ctx.Step(`^the response field "([^"]*)" should be masked$`, steps.fieldShouldBeMasked)
}

type contactSteps struct {
	tc TestContext
}

// verifiedCompany needs a seeded company; scenarios skip without one.
func (s *contactSteps) verifiedCompany(ctx context.Context) error {
	if s.tc.GetCompanyID() == "" {
		return godog.ErrSkip
	}
	return nil
}

func (s *contactSteps) submitFrom(ctx context.Context, email string) error {
	return s.submitTo(ctx, s.tc.GetCompanyID(), email)
}

func (s *contactSteps) submitTo(ctx context.Context, companyID, email string) error {
	return s.tc.POST("/contacts", map[string]any{
		"company_id":      companyID,
		"message":         "We are looking for a long-term supplier of galvanized steel coils.",
		"company_name":    "E2E Buyer GmbH",
		"contact_person":  "Erika Mustermann",
		"email":           s.tc.Expand(email),
		"phone":           "+49301234567",
		"country":         "DE",
		"recaptcha_token": "e2e",
	})
}

func (s *contactSteps) viewMasked(ctx context.Context) error {
	return s.tc.GET("/contacts/masked/"+s.tc.GetCompanyID(), nil)
}

func (s *contactSteps) fieldShouldBeMasked(ctx context.Context, field string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	str, _ := v.(string)
	if str != "" && !strings.Contains(str, "*") {
		return fmt.Errorf("field %q is not masked: %q", field, str)
	}
	return nil
}
