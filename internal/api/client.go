package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erwar/bookbuddy/internal/book"
)

// Client talks to the Book Buddy backend.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second, // summaries and reviews go through an LLM
		},
	}
}

type summarizeRequest struct {
	Note string `json:"note"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type reviewRequest struct {
	Note   string `json:"note"`
	Rating int    `json:"rating"`
}

type reviewResponse struct {
	Review string `json:"review"`
}

func (c *Client) ListBooks(ctx context.Context) ([]book.Book, error) {
	var books []book.Book
	if err := c.do(ctx, "list books", http.MethodGet, "/books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) CreateBook(ctx context.Context, d book.Draft) (*book.Book, error) {
	var b book.Book
	if err := c.do(ctx, "create book", http.MethodPost, "/books", d, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int64, p book.Patch) error {
	return c.do(ctx, "update book", http.MethodPut, fmt.Sprintf("/books/%d", id), p, nil)
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, "delete book", http.MethodDelete, fmt.Sprintf("/books/%d", id), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*book.Stats, error) {
	var s book.Stats
	if err := c.do(ctx, "get stats", http.MethodGet, "/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Summarize(ctx context.Context, note string) (string, error) {
	var resp summarizeResponse
	if err := c.do(ctx, "summarize", http.MethodPost, "/summarize", summarizeRequest{Note: note}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *Client) Review(ctx context.Context, note string, rating int) (string, error) {
	var resp reviewResponse
	if err := c.do(ctx, "review", http.MethodPost, "/review", reviewRequest{Note: note, Rating: rating}, &resp); err != nil {
		return "", err
	}
	return resp.Review, nil
}

func (c *Client) Recommend(ctx context.Context, id int64) ([]book.Recommendation, error) {
	var recs []book.Recommendation
	if err := c.do(ctx, "recommend", http.MethodGet, fmt.Sprintf("/recommend/%d", id), nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// do sends one request. Every failure, including a body that does not
// decode, comes back as a *book.NetworkError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	requestID := uuid.NewString()
	fail := func(status int, err error) error {
		return &book.NetworkError{Op: op, StatusCode: status, RequestID: requestID, Err: err}
	}

	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fail(0, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fail(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fail(0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, errorMessage(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage pulls {"error": "..."} out of a failed response, if present.
func errorMessage(r io.Reader) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64*1024)).Decode(&payload); err != nil || payload.Error == "" {
		return nil
	}
	return errors.New(payload.Error)
}
