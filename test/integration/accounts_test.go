//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func call(method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	var out envelope
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &out)
	}
	return rr, out
}

func tokenFrom(e envelope) string {
	var payload struct {
		Token string `json:"token"`
	}
	Expect(json.Unmarshal(e.Data, &payload)).To(Succeed())
	return payload.Token
}

var _ = Describe("Account API", func() {
	BeforeEach(func() {
		env.reset()
	})

	Describe("registration", func() {
		It("persists the account with a client code and returns a token", func() {
			rr, body := call(http.MethodPost, "/login/register", map[string]string{
				"email":    "ana@example.com",
				"password": "s3cret!",
			}, "")
			Expect(rr.Code).To(Equal(http.StatusCreated))
			Expect(tokenFrom(body)).NotTo(BeEmpty())

			var code, hash string
			err := env.pg.DB.QueryRowContext(env.ctx,
				`SELECT code, password_hash FROM accounts WHERE email = $1`, "ana@example.com").Scan(&code, &hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(MatchRegexp(`^CLIE[0-9A-Z]{26}$`))
			Expect(hash).To(HavePrefix("$2a$"))
			Expect(hash).NotTo(ContainSubstring("s3cret!"))
		})

		It("lets exactly one of many concurrent duplicate registrations succeed", func() {
			const workers = 6
			var wg sync.WaitGroup
			statuses := make([]int, workers)
			for i := range workers {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					rr, _ := call(http.MethodPost, "/login/register", map[string]string{
						"email":    "race@example.com",
						"password": fmt.Sprintf("pw-%d", i),
					}, "")
					statuses[i] = rr.Code
				}(i)
			}
			wg.Wait()

			Expect(statuses).To(ContainElement(http.StatusCreated))
			created := 0
			for _, s := range statuses {
				if s == http.StatusCreated {
					created++
				} else {
					Expect(s).To(Equal(http.StatusInternalServerError))
				}
			}
			Expect(created).To(Equal(1))

			var count int
			Expect(env.pg.DB.QueryRowContext(env.ctx, `SELECT count(*) FROM accounts`).Scan(&count)).To(Succeed())
			Expect(count).To(Equal(1))
		})
	})

	Describe("sign in", func() {
		BeforeEach(func() {
			rr, _ := call(http.MethodPost, "/login/register", map[string]string{
				"email":    "ana@example.com",
				"password": "s3cret!",
			}, "")
			Expect(rr.Code).To(Equal(http.StatusCreated))
		})

		It("starts a session for valid credentials", func() {
			rr, body := call(http.MethodPost, "/login/signin", map[string]string{
				"email":    "ANA@example.com",
				"password": "s3cret!",
			}, "")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(body.Message).To(Equal("Session started!"))
			Expect(rr.Body.String()).NotTo(ContainSubstring("$2a$"))

			me, _ := call(http.MethodGet, "/me", nil, tokenFrom(body))
			Expect(me.Code).To(Equal(http.StatusOK))
			Expect(me.Body.String()).To(ContainSubstring(`"account_identifier":"ana@example.com"`))
		})

		It("rejects a wrong password", func() {
			rr, body := call(http.MethodPost, "/login/signin", map[string]string{
				"email":    "ana@example.com",
				"password": "wrong",
			}, "")
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
			Expect(body.Message).To(Equal("Invalid credentials provided."))
		})

		It("rejects an unknown account", func() {
			rr, body := call(http.MethodPost, "/login/signin", map[string]string{
				"email":    "ghost@example.com",
				"password": "s3cret!",
			}, "")
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
			Expect(body.Message).To(Equal("Invalid username or password."))
		})
	})

	Describe("readiness", func() {
		It("reports both dependencies", func() {
			rr, _ := call(http.MethodGet, "/health/ready", nil, "")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(ContainSubstring(`"database":"ok"`))
			Expect(rr.Body.String()).To(ContainSubstring(`"redis":"ok"`))
		})
	})
})
