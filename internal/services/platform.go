package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/huyndq/adpilot/internal/config"
	"github.com/huyndq/adpilot/internal/engine"
	"github.com/huyndq/adpilot/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Object statuses understood by the ad platform graph API.
const (
	platformStatusActive = "ACTIVE"
	platformStatusPaused = "PAUSED"
)

// PlatformService talks to the ad platform's graph API. It implements
// engine.PlatformClient. Every call is bounded by the client timeout and a
// shared rate limiter, so a slow platform degrades to per-object errors
// instead of hanging a cycle.
type PlatformService struct {
	baseURL     string
	accessToken string
	client      *http.Client
	limiter     *rate.Limiter
	log         zerolog.Logger
}

func NewPlatformService(cfg *config.PlatformConfig) *PlatformService {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}

	return &PlatformService{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: cfg.Timeout()},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		log:         logger.Module("platform"),
	}
}

// platformError is the error envelope the graph API returns.
type platformError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (s *PlatformService) UpdateStatus(ctx context.Context, objectID string, active bool) error {
	status := platformStatusPaused
	if active {
		status = platformStatusActive
	}
	_, err := s.post(ctx, objectID, map[string]string{"status": status})
	return err
}

func (s *PlatformService) GetBudget(ctx context.Context, objectID string) (decimal.Decimal, error) {
	body, err := s.get(ctx, objectID, url.Values{"fields": {"daily_budget"}})
	if err != nil {
		return decimal.Zero, err
	}

	var payload struct {
		DailyBudget string `json:"daily_budget"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, &engine.Error{Kind: engine.ErrKindPlatformRejected, Message: "unreadable budget response", Err: err}
	}
	budget, err := decimal.NewFromString(payload.DailyBudget)
	if err != nil {
		return decimal.Zero, &engine.Error{Kind: engine.ErrKindPlatformRejected, Message: fmt.Sprintf("invalid budget value %q", payload.DailyBudget), Err: err}
	}
	return budget, nil
}

func (s *PlatformService) UpdateBudget(ctx context.Context, objectID string, budget decimal.Decimal) error {
	// The platform expects integer minor currency units.
	_, err := s.post(ctx, objectID, map[string]string{"daily_budget": budget.Round(0).String()})
	return err
}

func (s *PlatformService) get(ctx context.Context, objectID string, params url.Values) ([]byte, error) {
	params.Set("access_token", s.accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", s.baseURL, url.PathEscape(objectID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return s.do(req)
}

func (s *PlatformService) post(ctx context.Context, objectID string, fields map[string]string) ([]byte, error) {
	payload := map[string]string{"access_token": s.accessToken}
	for k, v := range fields {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(objectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *PlatformService) do(req *http.Request) ([]byte, error) {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return nil, &engine.Error{Kind: engine.ErrKindPlatformRejected, Message: "rate limiter wait aborted", Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &engine.Error{Kind: engine.ErrKindPlatformRejected, Message: "platform request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &engine.Error{Kind: engine.ErrKindPlatformRejected, Message: "cannot read platform response", Err: err}
	}

	if resp.StatusCode >= 400 {
		var pe platformError
		msg := fmt.Sprintf("platform returned HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &pe) == nil && pe.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s (code %d)", msg, pe.Error.Message, pe.Error.Code)
		}
		s.log.Warn().Str("url", req.URL.Path).Int("status", resp.StatusCode).Msg(msg)
		return nil, &engine.Error{Kind: engine.ErrKindPlatformRejected, Message: msg}
	}

	return body, nil
}
