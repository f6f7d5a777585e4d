// Package tencent implements a signed client for the upstream meeting API.
package tencent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qwli7/meetbridge/internal/log"
)

// Config carries the upstream credentials and endpoint.
type Config struct {
	AppID     string
	SecretID  string
	SecretKey string
	Endpoint  string // base URL, default https://api.meeting.qq.com
	SDKID     string // emitted as SdkId header iff non-empty
}

// Client issues signed requests against the upstream meeting API.
// It is stateless beyond credentials and safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client for the given credentials.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.meeting.qq.com"
	}
	return &Client{
		cfg: Config{
			AppID:     cfg.AppID,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
			SDKID:     cfg.SDKID,
		},
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// do signs and sends one request. uri must include the query string; it is
// both the request path and the signed canonical uri.
func (c *Client) do(ctx context.Context, method, uri, body string) (int, []byte, error) {
	timestamp := Timestamp()
	nonce := Nonce()
	signature := Sign(c.cfg.SecretID, c.cfg.SecretKey, method, uri, timestamp, nonce, body)

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Endpoint+uri, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-TC-Key", c.cfg.SecretID)
	req.Header.Set("X-TC-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-TC-Nonce", nonce)
	req.Header.Set("X-TC-Signature", signature)
	req.Header.Set("AppId", c.cfg.AppID)
	req.Header.Set("X-TC-Registered", "1")
	if c.cfg.SDKID != "" {
		req.Header.Set("SdkId", c.cfg.SDKID)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = res.Body.Close() }()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, respBody, nil
}

// CreateMeeting schedules a meeting via POST /v1/meetings.
func (c *Client) CreateMeeting(ctx context.Context, req *CreateMeetingRequest) (*CreateMeetingResponse, error) {
	const op = "create meeting"
	logger := log.WithComponentFromContext(ctx, "tencent")

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("tencent: marshal create request: %w", err)
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/v1/meetings", string(body))
	if err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	if status < 200 || status >= 300 {
		logger.Error().
			Int("status", status).
			Str("body", string(respBody)).
			Msg("create meeting failed")
		return nil, &APIError{Sentinel: ErrUpstreamError, Operation: op, Status: status, Body: string(respBody)}
	}

	var out CreateMeetingResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: status, Err: err}
	}
	logger.Info().
		Int("meeting_number", out.MeetingNumber).
		Str("subject", req.Subject).
		Msg("meeting created")
	return &out, nil
}

// CancelMeeting cancels a meeting via POST /v1/meetings/{id}/cancel.
// A successful cancellation returns an empty body.
func (c *Client) CancelMeeting(ctx context.Context, meetingID string, req *CancelMeetingRequest) error {
	const op = "cancel meeting"

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("tencent: marshal cancel request: %w", err)
	}

	uri := fmt.Sprintf("/v1/meetings/%s/cancel", meetingID)
	status, respBody, err := c.do(ctx, http.MethodPost, uri, string(body))
	if err != nil {
		return &APIError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	if status < 200 || status >= 300 {
		logger := log.WithComponentFromContext(ctx, "tencent")
		logger.Error().
			Str(log.FieldMeetingID, meetingID).
			Int("status", status).
			Str("body", string(respBody)).
			Msg("cancel meeting failed")
		return &APIError{Sentinel: ErrUpstreamError, Operation: op, Status: status, Body: string(respBody)}
	}
	return nil
}

// BookRooms attaches physical rooms to a meeting via
// POST /v1/meetings/{id}/book-rooms.
func (c *Client) BookRooms(ctx context.Context, meetingID string, req *BookRoomsRequest) error {
	return c.postRoomOp(ctx, "book rooms", meetingID, "book-rooms", req)
}

// ReleaseRooms detaches physical rooms from a meeting via
// POST /v1/meetings/{id}/release-rooms.
func (c *Client) ReleaseRooms(ctx context.Context, meetingID string, req *ReleaseRoomsRequest) error {
	return c.postRoomOp(ctx, "release rooms", meetingID, "release-rooms", req)
}

func (c *Client) postRoomOp(ctx context.Context, op, meetingID, action string, req any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("tencent: marshal %s request: %w", action, err)
	}

	uri := fmt.Sprintf("/v1/meetings/%s/%s", meetingID, action)
	status, respBody, err := c.do(ctx, http.MethodPost, uri, string(body))
	if err != nil {
		return &APIError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	if status < 200 || status >= 300 {
		logger := log.WithComponentFromContext(ctx, "tencent")
		logger.Error().
			Str(log.FieldMeetingID, meetingID).
			Int("status", status).
			Str("body", string(respBody)).
			Msg(op + " failed")
		return &APIError{Sentinel: ErrUpstreamError, Operation: op, Status: status, Body: string(respBody)}
	}
	return nil
}

// ListRooms fetches one page of physical room descriptors via
// GET /v1/meeting-rooms. operatorID identifies the account on whose behalf
// the listing runs.
func (c *Client) ListRooms(ctx context.Context, page, pageSize int, operatorID string) (*MeetingRoomsResponse, error) {
	const op = "list rooms"

	uri := fmt.Sprintf("/v1/meeting-rooms?page=%d&page_size=%d&operator_id=%s&operator_id_type=1", page, pageSize, operatorID)
	status, respBody, err := c.do(ctx, http.MethodGet, uri, "")
	if err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	if status < 200 || status >= 300 {
		logger := log.WithComponentFromContext(ctx, "tencent")
		logger.Error().
			Int("status", status).
			Str("body", string(respBody)).
			Msg("list rooms failed")
		return nil, &APIError{Sentinel: ErrUpstreamError, Operation: op, Status: status, Body: string(respBody)}
	}

	var out MeetingRoomsResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: status, Err: err}
	}
	return &out, nil
}
