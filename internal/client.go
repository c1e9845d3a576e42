package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const maxErrorBody = 512

// APIClient talks to the D-Logic backend over HTTP
type APIClient struct {
	client  *client.Client
	baseURL string
	token   string
	timeout time.Duration
}

// ClientOption configures an APIClient
type ClientOption func(*APIClient)

// WithToken attaches a bearer token to every request
func WithToken(token string) ClientOption {
	return func(c *APIClient) {
		c.token = token
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *APIClient) {
		c.timeout = d
	}
}

// NewAPIClient creates a client for the backend at baseURL
func NewAPIClient(baseURL string, opts ...ClientOption) (*APIClient, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	api := &APIClient{
		client:  c,
		baseURL: normalized,
	}
	for _, opt := range opts {
		opt(api)
	}
	return api, nil
}

// BaseURL returns the normalized backend URL
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// normalizeBaseURL ensures a scheme and strips the trailing slash
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("cannot parse %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return strings.TrimRight(fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path), "/"), nil
}

// Health requests GET / and reports whether the backend answered 200
func (c *APIClient) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	var body struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, "health", consts.MethodGet, endpointHealth, nil, &body)
	status := &HealthStatus{Latency: time.Since(start).Milliseconds()}

	var apiErr *APIError
	switch {
	case err == nil:
		status.Healthy = true
		status.StatusCode = consts.StatusOK
		status.Message = body.Message
		return status, nil
	case errors.As(err, &apiErr):
		status.StatusCode = apiErr.StatusCode
		status.Message = apiErr.Body
		return status, nil
	default:
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			// 200 with a non-JSON body is still a live server
			status.Healthy = true
			status.StatusCode = consts.StatusOK
			return status, nil
		}
		return status, err
	}
}

// Conditions fetches the condition catalog served by the backend
func (c *APIClient) Conditions(ctx context.Context) ([]Condition, error) {
	var out []Condition
	if err := c.do(ctx, "conditions", consts.MethodGet, endpointConditions, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type chatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

// Chat sends a message with the prior turns and returns the reply
func (c *APIClient) Chat(ctx context.Context, message string, history []HistoryEntry) (*ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if history == nil {
		history = []HistoryEntry{}
	}

	var out ChatReply
	req := chatRequest{Message: message, History: history}
	if err := c.do(ctx, "chat", consts.MethodPost, endpointChatMessage, req, &out); err != nil {
		return nil, err
	}
	return NormalizeChatReply(&out), nil
}

type legacyChatRequest struct {
	Message  string `json:"message"`
	RaceInfo string `json:"race_info,omitempty"`
}

// LegacyChat talks to the original /chat endpoint
func (c *APIClient) LegacyChat(ctx context.Context, message, raceInfo string) (*LegacyChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Field: "message", Reason: "must not be empty"}
	}

	var out LegacyChatReply
	req := legacyChatRequest{Message: message, RaceInfo: raceInfo}
	if err := c.do(ctx, "legacy_chat", consts.MethodPost, endpointLegacyChat, req, &out); err != nil {
		return nil, err
	}
	if out.Type == "" {
		out.Type = ChatResponseText
	}
	return &out, nil
}

type predictRequest struct {
	RaceID             string   `json:"race_id"`
	SelectedConditions []string `json:"selected_conditions"`
}

// Predict requests a ranked prediction for raceID. The condition count is
// not checked here.
func (c *APIClient) Predict(ctx context.Context, raceID string, conditions []string) (*PredictionResult, error) {
	if strings.TrimSpace(raceID) == "" {
		return nil, &ValidationError{Field: "race_id", Reason: "must not be empty"}
	}
	if conditions == nil {
		conditions = []string{}
	}

	var out PredictionResult
	req := predictRequest{RaceID: raceID, SelectedConditions: conditions}
	if err := c.do(ctx, "predict", consts.MethodPost, endpointPredict, req, &out); err != nil {
		return nil, err
	}
	return NormalizePrediction(&out, conditions), nil
}

// TodayRaces fetches today's race card
func (c *APIClient) TodayRaces(ctx context.Context) (*TodayRaces, error) {
	var out TodayRaces
	if err := c.do(ctx, "today_races", consts.MethodGet, endpointTodayRaces, nil, &out); err != nil {
		return nil, err
	}
	return NormalizeTodayRaces(&out), nil
}

// DatabaseStats fetches the backend database statistics
func (c *APIClient) DatabaseStats(ctx context.Context) (*DatabaseStatsResponse, error) {
	var out DatabaseStatsResponse
	if err := c.do(ctx, "database_stats", consts.MethodGet, endpointDatabaseStats, nil, &out); err != nil {
		return nil, err
	}
	return NormalizeDatabaseStats(&out), nil
}

// PastRaces lists finished races
func (c *APIClient) PastRaces(ctx context.Context) (*PastRaceList, error) {
	var out PastRaceList
	if err := c.do(ctx, "past_races", consts.MethodGet, endpointPastRaces, nil, &out); err != nil {
		return nil, err
	}
	if out.Total == 0 {
		out.Total = len(out.Races)
	}
	return &out, nil
}

// PastRace fetches one finished race with its runners
func (c *APIClient) PastRace(ctx context.Context, raceID string) (*PastRaceDetail, error) {
	if strings.TrimSpace(raceID) == "" {
		return nil, &ValidationError{Field: "race_id", Reason: "must not be empty"}
	}

	var out PastRaceDetail
	path := fmt.Sprintf(endpointPastRace, url.PathEscape(raceID))
	if err := c.do(ctx, "past_race", consts.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzePastRace asks the backend to compare D-Logic with the result
func (c *APIClient) AnalyzePastRace(ctx context.Context, raceID string) (*PastRaceAnalysis, error) {
	if strings.TrimSpace(raceID) == "" {
		return nil, &ValidationError{Field: "race_id", Reason: "must not be empty"}
	}

	var out PastRaceAnalysis
	path := fmt.Sprintf(endpointPastRaceAnalyze, url.PathEscape(raceID))
	if err := c.do(ctx, "analyze_past_race", consts.MethodPost, path, struct{}{}, &out); err != nil {
		return nil, err
	}
	if out.Analysis.TotalHorses == 0 {
		out.Analysis.TotalHorses = len(out.Horses)
	}
	return &out, nil
}

// do performs one request and decodes a 2xx JSON body into out
func (c *APIClient) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if in != nil {
		b, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		req.Header.SetContentTypeBytes([]byte("application/json"))
		req.SetBody(b)
	}

	start := time.Now()
	var err error
	if c.timeout > 0 {
		err = c.client.DoTimeout(ctx, req, resp, c.timeout)
	} else {
		err = c.client.Do(ctx, req, resp)
	}
	if err != nil {
		LogDebugFields("request failed", "op", op, "path", path, "elapsed", time.Since(start), "err", err)
		return &NetworkError{Op: op, Endpoint: path, Err: err}
	}

	status := resp.StatusCode()
	LogDebugFields("request done", "op", op, "path", path, "status", status, "elapsed", time.Since(start))

	// the body buffer goes back to the pool on release
	body := append([]byte(nil), resp.Body()...)
	if status < 200 || status >= 300 {
		return &APIError{Op: op, Endpoint: path, StatusCode: status, Body: truncate(string(body), maxErrorBody)}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// isConnectFailure reports whether err means the server could not be
// reached at all, as opposed to a failure mid-request.
func isConnectFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "dial tcp")
}
