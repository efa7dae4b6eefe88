// Package client is a typed gateway to the to-do API. It keeps the session
// cookie in a jar so callers never handle the token themselves.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"todo_api/internal/domain"
	"todo_api/internal/logger"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Options overrides client dependencies. A supplied HTTPClient without a
// cookie jar gets one, since every session call depends on it.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL is empty")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Client{baseURL: parsed, httpClient: hc, logger: log}, nil
}

// Error is returned for transport failures and non-2xx responses.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}

func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	const op = "fetch tasks"
	var tasks []domain.Task
	err := c.call(ctx, op, http.MethodGet, "tasks", nil, &tasks)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Status == http.StatusUnauthorized {
			e.Message = "unauthorized"
		}
		return nil, c.fail(op, err)
	}
	return tasks, nil
}

// CreateTask adds an unchecked task and returns the refreshed list.
func (c *Client) CreateTask(ctx context.Context, text string) ([]domain.Task, error) {
	const op = "create task"
	var tasks []domain.Task
	body := map[string]any{"text": text, "isChecked": false}
	if err := c.call(ctx, op, http.MethodPost, "tasks", body, &tasks); err != nil {
		return nil, c.fail(op, err)
	}
	return tasks, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) ([]domain.Task, error) {
	const op = "delete task"
	var tasks []domain.Task
	if err := c.call(ctx, op, http.MethodDelete, "deleteTask", map[string]int64{"id": id}, &tasks); err != nil {
		return nil, c.fail(op, err)
	}
	return tasks, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id int64, checked bool) error {
	const op = "update task status"
	return c.updateTask(ctx, op, id, checked)
}

func (c *Client) UpdateTaskText(ctx context.Context, id int64, text string) error {
	const op = "update task text"
	return c.updateTask(ctx, op, id, text)
}

// UpdateTask sends an explicit update over the single currentData field.
func (c *Client) UpdateTask(ctx context.Context, id int64, u domain.TaskUpdate) error {
	switch u.Kind {
	case domain.UpdateChecked:
		return c.UpdateTaskStatus(ctx, id, u.Checked)
	case domain.UpdateText:
		return c.UpdateTaskText(ctx, id, u.Text)
	default:
		return c.fail("update task", fmt.Errorf("unsupported update kind %s", u.Kind))
	}
}

func (c *Client) updateTask(ctx context.Context, op string, id int64, value any) error {
	path := "tasks/" + strconv.FormatInt(id, 10)
	if err := c.call(ctx, op, http.MethodPut, path, map[string]any{"currentData": value}, nil); err != nil {
		return c.fail(op, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	const op = "register"
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.call(ctx, op, http.MethodPost, "auth/sign-up", body, nil); err != nil {
		return c.fail(op, err)
	}
	return nil
}

// Login stores the session cookie in the client's jar on success.
func (c *Client) Login(ctx context.Context, email, password string) error {
	const op = "login"
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, op, http.MethodPost, "auth/sign-in", body, nil); err != nil {
		return c.fail(op, err)
	}
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	const op = "logout"
	if err := c.call(ctx, op, http.MethodPost, "auth/logout", nil, nil); err != nil {
		return c.fail(op, err)
	}
	return nil
}

// CheckAuth never returns an error: failures are logged and reported as
// not authenticated.
func (c *Client) CheckAuth(ctx context.Context) bool {
	const op = "check auth"
	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := c.call(ctx, op, http.MethodGet, "check-auth", nil, &body); err != nil {
		if !IsUnauthorized(err) {
			c.logger.Error("error checking auth", "error", err)
		}
		return false
	}
	return body.Authenticated
}

func (c *Client) fail(op string, err error) error {
	c.logger.Error("error during "+op, "error", err)
	return err
}

// call sends payload as JSON and decodes a 2xx response into out, if given.
func (c *Client) call(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return &Error{Op: op, Err: err}
		}
		body = buf
	}

	rel, err := url.Parse(path)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(rel).String(), body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Message: errorMessage(op, resp)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage prefers the server's {"error": "..."} text.
func errorMessage(op string, resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return fmt.Sprintf("failed to %s: %d", op, resp.StatusCode)
}
