// Package e2e drives a running supplierhub instance through its HTTP API.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// TestContext carries per-scenario HTTP state.
type TestContext struct {
	BaseURL    string
	AdminToken string
	CompanyID  string

	client  *http.Client
	headers map[string]string

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header

	// nonce keeps rate-limit buckets distinct across runs.
	nonce string
}

// NewTestContext reads the target from E2E_BASE_URL, E2E_ADMIN_TOKEN and
// E2E_COMPANY_ID.
func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL:    strings.TrimRight(base, "/"),
		AdminToken: os.Getenv("E2E_ADMIN_TOKEN"),
		CompanyID:  os.Getenv("E2E_COMPANY_ID"),
		client:     &http.Client{Timeout: 10 * time.Second},
		headers:    map[string]string{},
	}
}

// Reset clears state between scenarios.
func (tc *TestContext) Reset() {
	tc.headers = map[string]string{}
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
	tc.nonce = strconv.FormatInt(time.Now().UnixNano(), 36)
}

// Expand substitutes {nonce} in s.
func (tc *TestContext) Expand(s string) string {
	return strings.ReplaceAll(s, "{nonce}", tc.nonce)
}

func (tc *TestContext) SetHeader(name, value string) {
	tc.headers[name] = value
}

func (tc *TestContext) POST(path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(raw), nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tc.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastResponseStatus() int  { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }
func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeaders == nil {
		return ""
	}
	return tc.lastHeaders.Get(name)
}

// GetResponseField reads a top-level field, or a dotted path into nested
// objects, from the last JSON body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var cur any
	if err := json.Unmarshal(tc.lastBody, &cur); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}

func (tc *TestContext) GetAdminToken() string { return tc.AdminToken }
func (tc *TestContext) GetCompanyID() string  { return tc.CompanyID }
