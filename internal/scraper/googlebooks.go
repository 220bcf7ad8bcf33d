package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erwar/bookbuddy/internal/book"
)

type GoogleBooksClient struct {
	client  *http.Client
	baseURL string
	apiKey  string // Optional API key for higher rate limits
}

func NewGoogleBooksClient(baseURL, apiKey string) *GoogleBooksClient {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/books/v1"
	}

	return &GoogleBooksClient{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type gbSearchResult struct {
	TotalItems int      `json:"totalItems"`
	Items      []gbItem `json:"items"`
}

type gbItem struct {
	ID         string       `json:"id"`
	VolumeInfo gbVolumeInfo `json:"volumeInfo"`
}

type gbVolumeInfo struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// SearchBySubject returns up to limit volumes tagged with subject, shaped as
// recommendations for a book of that genre.
func (c *GoogleBooksClient) SearchBySubject(ctx context.Context, subject string, limit int) ([]book.Recommendation, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 40 {
		limit = 40 // Google Books API max
	}

	searchURL := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d",
		c.baseURL, url.QueryEscape("subject:"+subject), limit)

	if c.apiKey != "" {
		searchURL += "&key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search Google Books: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("Google Books returned status %d", resp.StatusCode)
	}

	var result gbSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	recs := make([]book.Recommendation, 0, len(result.Items))
	for _, item := range result.Items {
		v := item.VolumeInfo
		description := v.Description
		if description == "" {
			description = "No description"
		}
		recs = append(recs, book.Recommendation{
			ID:          item.ID,
			Title:       v.Title,
			Author:      strings.Join(v.Authors, ", "),
			Description: description,
			Genre:       subject,
		})
	}

	return recs, nil
}
