package auth

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetAccessToken() string
	SetAccessToken(token string)
	UniqueEmail(email string) string
}

var clientCode = regexp.MustCompile(`^CLIE[0-9A-Z]{26}$`)

// RegisterSteps registers account-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I register with email "([^"]*)" and password "([^"]*)"$`, steps.register)
	ctx.Step(`^an account exists with email "([^"]*)" and password "([^"]*)"$`, steps.accountExists)
	ctx.Step(`^I sign in with email "([^"]*)" and password "([^"]*)"$`, steps.signIn)
	ctx.Step(`^I save the token$`, steps.saveToken)
	ctx.Step(`^I use the token "([^"]*)"$`, steps.useToken)
	ctx.Step(`^the account code should look like a client code$`, steps.accountCodeIsClientCode)
	ctx.Step(`^the authenticated identity should be "([^"]*)"$`, steps.identityShouldBe)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) register(_ context.Context, email, password string) error {
	return s.tc.POST("/login/register", map[string]any{
		"email":    s.tc.UniqueEmail(email),
		"password": password,
	})
}

func (s *authSteps) accountExists(ctx context.Context, email, password string) error {
	if err := s.register(ctx, email, password); err != nil {
		return err
	}
	if _, err := s.tc.GetResponseField("data.token"); err != nil {
		return fmt.Errorf("registration did not return a token: %w", err)
	}
	return nil
}

func (s *authSteps) signIn(_ context.Context, email, password string) error {
	return s.tc.POST("/login/signin", map[string]any{
		"email":    s.tc.UniqueEmail(email),
		"password": password,
	})
}

func (s *authSteps) saveToken(_ context.Context) error {
	token, err := s.tc.GetResponseField("data.token")
	if err != nil {
		return err
	}
	str, ok := token.(string)
	if !ok || str == "" {
		return fmt.Errorf("token missing from response")
	}
	s.tc.SetAccessToken(str)
	return nil
}

func (s *authSteps) useToken(_ context.Context, token string) error {
	s.tc.SetAccessToken(token)
	return nil
}

func (s *authSteps) accountCodeIsClientCode(_ context.Context) error {
	code, err := s.tc.GetResponseField("data.account.code")
	if err != nil {
		return err
	}
	if str, _ := code.(string); !clientCode.MatchString(str) {
		return fmt.Errorf("unexpected account code %v", code)
	}
	return nil
}

func (s *authSteps) identityShouldBe(_ context.Context, email string) error {
	got, err := s.tc.GetResponseField("data.identity.account_identifier")
	if err != nil {
		return err
	}
	if want := s.tc.UniqueEmail(email); got != want {
		return fmt.Errorf("expected identity %q, got %v", want, got)
	}
	return nil
}
