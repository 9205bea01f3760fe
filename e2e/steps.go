// Package e2e drives a running clientauth server with Gherkin scenarios.
// Set CLIENTAUTH_BASE_URL to point the suite at a deployment.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"clientauth/e2e/steps/auth"
	"clientauth/e2e/steps/common"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	BaseURL string
	client  *http.Client

	lastStatus int
	lastBody   []byte
	token      string
	runID      string
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		runID:   fmt.Sprintf("%d", time.Now().UnixNano()),
	}
}

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
}

func (tc *TestContext) reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.token = ""
	tc.runID = fmt.Sprintf("%d", time.Now().UnixNano())
}

// UniqueEmail makes scenario emails unique per run so scenarios can be
// replayed against the same store.
func (tc *TestContext) UniqueEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return local + "+" + tc.runID + "@" + domain
}

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader, nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastBody() []byte { return tc.lastBody }

// GetResponseField reads a dotted path such as "data.token" from the last
// JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var current any
	if err := json.Unmarshal(tc.lastBody, &current); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		if current, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not found", field)
		}
	}
	return current, nil
}

func (tc *TestContext) GetAccessToken() string { return tc.token }

func (tc *TestContext) SetAccessToken(token string) { tc.token = token }
