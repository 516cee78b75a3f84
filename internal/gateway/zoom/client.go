package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/gateway"
)

const (
	operationCreate = "create_meeting"
	operationDelete = "delete_meeting"

	// scheduledMeeting is the remote meeting type for a meeting with a fixed start time.
	scheduledMeeting = 2

	maxBodySize = 64 * 1024
)

type RetryConfig struct {
	MaxAttempt uint
	Delay      time.Duration
}

type Config struct {
	BaseURL string

	// Limit is the number of requests per second sent to the remote API. Zero disables the limit.
	Limit rate.Limit
	Burst int

	// DurationPadding is added to the duration sent for every created meeting.
	DurationPadding time.Duration

	Retry RetryConfig
}

type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	padding time.Duration
	retry   RetryConfig

	requests *prometheus.CounterVec

	logger *logr.Logger
}

var _ gateway.Gateway = Client{}

func New(httpClient *http.Client, conf Config, registry prometheus.Registerer) (Client, error) {
	limit := conf.Limit
	if limit <= 0 {
		limit = rate.Inf
	}

	burst := conf.Burst
	if burst <= 0 {
		burst = 1
	}

	retryConf := conf.Retry
	if retryConf.MaxAttempt == 0 {
		retryConf.MaxAttempt = 1
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "requests_total",
		Help:      "Remote scheduling API calls by operation and result.",
	}, []string{"operation", "result"})

	err := registry.Register(requests)
	if err != nil {
		return Client{}, fmt.Errorf("failed to register metric: %w", err)
	}

	return Client{
		base:     strings.TrimRight(conf.BaseURL, "/"),
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		padding:  conf.DurationPadding,
		retry:    retryConf,
		requests: requests,
	}, nil
}

func (c Client) WithLogger(logger logr.Logger) Client {
	c.logger = &logger

	return c
}

func (c Client) WithHTTPClient(httpClient *http.Client) Client {
	c.http = httpClient

	return c
}

type createMeetingRequest struct {
	Topic       string `json:"topic"`
	ScheduleFor string `json:"schedule_for"`
	StartTime   string `json:"start_time"`
	Duration    int64  `json:"duration"`
	Timezone    string `json:"timezone"`
	Type        int    `json:"type"`
}

type createMeetingResponse struct {
	ID json.Number `json:"id"`
}

// CreateMeeting is only retried on rate limiting: any other failure may have created the meeting already.
func (c Client) CreateMeeting(ctx context.Context, host entity.HostID, meeting entity.Meeting) (entity.RemoteID, error) {
	body := createMeetingRequest{
		Topic:       meeting.Name,
		ScheduleFor: string(host),
		StartTime:   meeting.Start.UTC().Format(time.RFC3339),
		Duration:    gateway.DurationMinutes(meeting) + int64(c.padding/time.Minute),
		Timezone:    "UTC",
		Type:        scheduledMeeting,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &gateway.Error{Sentinel: gateway.ErrBadRequest, Operation: operationCreate, Err: err}
	}

	path := fmt.Sprintf("/users/%s/meetings", url.PathEscape(string(host)))

	var ret createMeetingResponse

	isRateLimited := func(err error) bool {
		return errors.Is(err, gateway.ErrRateLimited)
	}

	err = c.do(ctx, operationCreate, http.MethodPost, path, payload, &ret, isRateLimited)
	if err != nil {
		return "", err
	}

	if ret.ID == "" {
		return "", &gateway.Error{Sentinel: gateway.ErrBadResponse, Operation: operationCreate, Body: "missing meeting id"}
	}

	c.logInfo(2, "Remote meeting created", "meetingID", meeting.ID, "host", host, "remoteID", ret.ID.String())

	return entity.RemoteID(ret.ID.String()), nil
}

// DeleteMeeting is idempotent on the remote side, temporary failures are retried.
func (c Client) DeleteMeeting(ctx context.Context, id entity.RemoteID) error {
	path := fmt.Sprintf("/meetings/%s", url.PathEscape(string(id)))

	err := c.do(ctx, operationDelete, http.MethodDelete, path, nil, nil, gateway.IsTemporary)
	if err != nil {
		return err
	}

	c.logInfo(2, "Remote meeting deleted", "remoteID", id)

	return nil
}

func (c Client) do(ctx context.Context, operation, method, path string, payload []byte, out any, retryIf func(error) bool) error {
	err := retry.Do(
		func() error {
			return c.send(ctx, operation, method, path, payload, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.retry.MaxAttempt),
		retry.Delay(c.retry.Delay),
		retry.RetryIf(retryIf),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			c.logInfo(1, "Retrying remote call", "operation", operation, "attempt", attempt+1, "error", err.Error())
		}),
	)

	if err != nil {
		gErr := &gateway.Error{}
		if !errors.As(err, &gErr) {
			err = &gateway.Error{Sentinel: gateway.ErrUnavailable, Operation: operation, Err: err}
		}
	}

	c.requests.WithLabelValues(operation, resultLabel(err)).Inc()

	return err
}

func (c Client) send(ctx context.Context, operation, method, path string, payload []byte, out any) error {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return &gateway.Error{Sentinel: gateway.ErrUnavailable, Operation: operation, Err: err}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &gateway.Error{Sentinel: gateway.ErrBadRequest, Operation: operation, Err: err}
	}

	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &gateway.Error{Sentinel: gateway.ErrUnavailable, Operation: operation, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return &gateway.Error{Sentinel: gateway.ErrUnavailable, Operation: operation, Status: res.StatusCode, Err: err}
	}

	sentinel := gateway.SentinelForStatus(res.StatusCode)
	if sentinel != nil {
		return &gateway.Error{
			Sentinel:  sentinel,
			Operation: operation,
			Status:    res.StatusCode,
			Body:      strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		return nil
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return &gateway.Error{Sentinel: gateway.ErrBadResponse, Operation: operation, Status: res.StatusCode, Err: err}
	}

	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gateway.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, gateway.ErrNotFound):
		return "not_found"
	case errors.Is(err, gateway.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, gateway.ErrUnavailable):
		return "unavailable"
	default:
		return "failure"
	}
}

func (c Client) logInfo(level int, msg string, keysAndValues ...any) {
	if c.logger == nil {
		return
	}

	c.logger.V(level).Info(msg, keysAndValues...)
}
