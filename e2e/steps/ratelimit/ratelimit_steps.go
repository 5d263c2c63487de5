package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	SetHeader(name, value string)
	Expand(s string) string
	GetAdminToken() string
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers submission throttle and quota reset steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) invalid contact requests from "([^"]*)"$`, steps.sendInvalid)
	ctx.Step(`^the next contact request from "([^"]*)" should be throttled$`, steps.nextShouldBeThrottled)
	ctx.Step(`^I reset the weekly quota of user "([^"]*)" with the admin token$`, steps.resetWithToken)
	ctx.Step(`^I reset the weekly quota of user "([^"]*)" without a token$`, steps.resetWithoutToken)
}

type ratelimitSteps struct {
	tc TestContext
}

// invalid submissions still count against the throttle.
func (s *ratelimitSteps) invalid(email string) map[string]any {
	return map[string]any{"email": s.tc.Expand(email)}
}

func (s *ratelimitSteps) sendInvalid(ctx context.Context, n int, email string) error {
	for i := 0; i < n; i++ {
		if err := s.tc.POST("/contacts", s.invalid(email)); err != nil {
			return err
		}
		if got := s.tc.GetLastResponseStatus(); got == 429 {
			return fmt.Errorf("attempt %d throttled early", i+1)
		}
	}
	return nil
}

func (s *ratelimitSteps) nextShouldBeThrottled(ctx context.Context, email string) error {
	if err := s.tc.POST("/contacts", s.invalid(email)); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got != 429 {
		return fmt.Errorf("expected 429, got %d", got)
	}
	if s.tc.GetLastResponseHeader("Retry-After") == "" {
		return errors.New("missing Retry-After header")
	}
	return nil
}

func (s *ratelimitSteps) resetWithToken(ctx context.Context, userID string) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrSkip
	}
	s.tc.SetHeader("X-Admin-Token", s.tc.GetAdminToken())
	return s.tc.POST("/admin/quotas/"+userID+"/reset", map[string]any{})
}

func (s *ratelimitSteps) resetWithoutToken(ctx context.Context, userID string) error {
	return s.tc.POST("/admin/quotas/"+userID+"/reset", map[string]any{})
}
