package e2e

import (
	"github.com/cucumber/godog"

	"supplierhub/e2e/steps/common"
	"supplierhub/e2e/steps/contact"
	"supplierhub/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	contact.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
