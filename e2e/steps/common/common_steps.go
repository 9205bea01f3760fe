package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POST(path string, body any) error
	LastStatus() int
	LastBody() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the service is ready$`, steps.serviceIsReady)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)" with an empty body$`, steps.postEmpty)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response message should be "([^"]*)"$`, steps.messageShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response data should be empty$`, steps.dataShouldBeEmpty)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsReady(ctx context.Context) error {
	if err := s.tc.GET("/health/ready", nil); err != nil {
		return fmt.Errorf("service unreachable: %w", err)
	}
	return s.statusShouldBe(ctx, 200)
}

func (s *commonSteps) get(_ context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) postEmpty(_ context.Context, path string) error {
	return s.tc.POST(path, nil)
}

func (s *commonSteps) statusShouldBe(_ context.Context, expected int) error {
	if got := s.tc.LastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) messageShouldBe(ctx context.Context, expected string) error {
	return s.fieldShouldBe(ctx, "message", expected)
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(value) != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, fmt.Sprint(value))
	}
	return nil
}

func (s *commonSteps) dataShouldBeEmpty(_ context.Context) error {
	value, err := s.tc.GetResponseField("data")
	if err != nil {
		return err
	}
	if value != nil {
		return fmt.Errorf("expected null data, got %v", value)
	}
	return nil
}
