package e2e

import (
	"github.com/cucumber/godog"

	"identitypulse/e2e/steps/common"
	"identitypulse/e2e/steps/identity"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	identity.RegisterSteps(ctx, tc)
}
