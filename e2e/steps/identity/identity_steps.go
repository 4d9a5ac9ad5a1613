package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	ResponseBody() []byte
}

// RegisterSteps registers identity search step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &identitySteps{tc: tc}

	ctx.Step(`^I search for:$`, steps.searchFor)
	ctx.Step(`^the countries list should include "([^"]*)"$`, steps.countriesShouldInclude)
	ctx.Step(`^the country should have "([^"]*)" as an optional field$`, steps.countryShouldHaveOptional)
}

type identitySteps struct {
	tc TestContext
}

// searchFor posts a two-column field/value table as the search body.
func (s *identitySteps) searchFor(ctx context.Context, table *godog.Table) error {
	body := make(map[string]string, len(table.Rows))
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("search table rows need a field and a value")
		}
		body[row.Cells[0].Value] = row.Cells[1].Value
	}
	return s.tc.POST("/identity/search", body)
}

func (s *identitySteps) countriesShouldInclude(ctx context.Context, code string) error {
	var resp struct {
		Countries []struct {
			Code string `json:"code"`
		} `json:"countries"`
	}
	if err := json.Unmarshal(s.tc.ResponseBody(), &resp); err != nil {
		return err
	}
	for _, c := range resp.Countries {
		if c.Code == code {
			return nil
		}
	}
	return fmt.Errorf("country %s not listed", code)
}

func (s *identitySteps) countryShouldHaveOptional(ctx context.Context, field string) error {
	var resp struct {
		Optional []string `json:"optional"`
	}
	if err := json.Unmarshal(s.tc.ResponseBody(), &resp); err != nil {
		return err
	}
	for _, f := range resp.Optional {
		if f == field {
			return nil
		}
	}
	return fmt.Errorf("%s is not optional: %v", field, resp.Optional)
}
