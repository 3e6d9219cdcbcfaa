package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/S1M0N38/cr-db/internal/config"
	"github.com/S1M0N38/cr-db/internal/constants"

	"github.com/valyala/fasthttp"
)

// APIError is a non-200 reply. The upstream explains it with reason and
// message; it usually means a bad token or a malformed request.
type APIError struct {
	StatusCode int    `json:"-"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s: %s", e.StatusCode, e.Reason, e.Message)
}

type Client struct {
	apiKey  string
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}
	return &Client{
		apiKey:  cfg.APIToken,
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,

			// keep %23 in the player path escaped
			DisablePathNormalizing: true,
		},
	}, nil
}

// GetBattleLog fetches the recent battles of the player with tag, given
// without its leading '#'.
func (c *Client) GetBattleLog(ctx context.Context, tag string) ([]Battle, error) {
	u := fmt.Sprintf("%s/players/%s/battlelog", c.baseURL, url.PathEscape("#"+tag))
	battles, err := doRequest[[]Battle](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *battles, nil
}

func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+client.apiKey)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("failed to request %s: %w", url, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("failed to request %s: %w", url, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Reason == "" {
			apiErr.Reason = fasthttp.StatusMessage(resp.StatusCode())
		}
		return nil, apiErr
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return &result, nil
}

type Battle struct {
	Type       string        `json:"type"`
	BattleTime string        `json:"battleTime"`
	GameMode   GameMode      `json:"gameMode"`
	Team       []Participant `json:"team"`
	Opponent   []Participant `json:"opponent"`
}

type GameMode struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Participant struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`

	// absent outside trophy modes
	StartingTrophies *int `json:"startingTrophies,omitempty"`

	Crowns int    `json:"crowns"`
	Cards  []Card `json:"cards"`
}

type Card struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}
