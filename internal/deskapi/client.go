// Package deskapi is the HTTP client for the remote desk booking service.
package deskapi

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

	"github.com/redis/go-redis/v9"

	"deskbook/internal/metrics"
	"deskbook/internal/models"
)

const desksCacheKey = "deskbook:desks"

const (
	OpListDesks     = "list_desks"
	OpBookDesk      = "book_desk"
	OpCancelBooking = "cancel_booking"
)

// Client calls the booking service's /desks endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// BookRequest is the body of POST /desks/book.
type BookRequest struct {
	ID           models.DeskID `json:"id"`
	EmployeeName string        `json:"employee_name"`
	Date         string        `json:"date"`
}

// CancelRequest is the body of DELETE /desks/{id}.
type CancelRequest struct {
	Date string `json:"date"`
}

// NewClient constructs a client for baseURL. A non-positive timeout defaults to 10s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for the desk list.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ListDesks fetches every desk with its booking map.
func (c *Client) ListDesks(ctx context.Context) ([]models.Desk, error) {
	var desks []models.Desk
	if c.readCache(ctx, desksCacheKey, &desks) {
		metrics.IncGatewayCacheHit()
		return desks, nil
	}

	if err := c.doJSON(ctx, OpListDesks, http.MethodGet, c.baseURL+"/desks", nil, &desks); err != nil {
		return nil, err
	}
	c.writeCache(ctx, desksCacheKey, desks)
	return desks, nil
}

// BookDesk creates or overwrites the booking of id on date.
func (c *Client) BookDesk(ctx context.Context, id models.DeskID, employeeName, date string) error {
	body := BookRequest{ID: id, EmployeeName: employeeName, Date: date}
	if err := c.doJSON(ctx, OpBookDesk, http.MethodPost, c.baseURL+"/desks/book", body, nil); err != nil {
		return err
	}
	c.invalidateCache(ctx)
	return nil
}

// CancelBooking removes the booking of id on date.
func (c *Client) CancelBooking(ctx context.Context, id models.DeskID, date string) error {
	endpoint := fmt.Sprintf("%s/desks/%s", c.baseURL, url.PathEscape(id.String()))
	if err := c.doJSON(ctx, OpCancelBooking, http.MethodDelete, endpoint, CancelRequest{Date: date}, nil); err != nil {
		return err
	}
	c.invalidateCache(ctx)
	return nil
}

// HealthCheck checks that the desk list endpoint answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/desks", http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) invalidateCache(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, desksCacheKey).Err()
}

func (c *Client) doJSON(ctx context.Context, op, method, endpoint string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveGateway(op, err == nil, time.Since(start))
	}()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: KindDecode, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.addHeaders(req)
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Error{Op: op, Kind: KindStatus, Status: resp.StatusCode, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return &Error{Op: op, Kind: KindDecode, Err: err}
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
