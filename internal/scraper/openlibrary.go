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

type OpenLibraryClient struct {
	client  *http.Client
	baseURL string
}

func NewOpenLibraryClient(baseURL string) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}

	return &OpenLibraryClient{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Edition is the part of an ISBN record the draft form cares about.
type Edition struct {
	ISBN    string
	Title   string
	Authors []string
}

type olEdition struct {
	Title   string     `json:"title"`
	Authors []olAuthor `json:"authors"`
}

// Editions usually reference authors by key; some mirrors inline the name.
type olAuthor struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// FetchByISBN fetches edition metadata by ISBN. A 404 is a
// *book.NotFoundError; any other failure, including a body of the wrong
// shape, is a *book.NetworkError.
func (c *OpenLibraryClient) FetchByISBN(ctx context.Context, isbn string) (*Edition, error) {
	isbn = normalizeISBN(isbn)
	if !validISBN(isbn) {
		return nil, &book.ValidationError{Field: "isbn", Message: fmt.Sprintf("invalid ISBN: %q", isbn)}
	}
	fail := func(status int, err error) error {
		return &book.NetworkError{Op: "lookup ISBN " + isbn, StatusCode: status, Err: err}
	}

	reqURL := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fail(0, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fail(0, fmt.Errorf("fetch ISBN: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return nil, &book.NotFoundError{Resource: "ISBN", Key: isbn}
	}
	if resp.StatusCode != 200 {
		return nil, fail(resp.StatusCode, nil)
	}

	var edition olEdition
	if err := json.NewDecoder(resp.Body).Decode(&edition); err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("decode edition: %w", err))
	}

	var authorNames []string
	for _, a := range edition.Authors {
		name := a.Name
		if name == "" && a.Key != "" {
			author, err := c.fetchAuthor(ctx, a.Key)
			if err != nil {
				continue
			}
			name = author.Name
		}
		if name != "" {
			authorNames = append(authorNames, name)
		}
	}

	return &Edition{
		ISBN:    isbn,
		Title:   edition.Title,
		Authors: authorNames,
	}, nil
}

func (c *OpenLibraryClient) fetchAuthor(ctx context.Context, key string) (*olAuthor, error) {
	reqURL := fmt.Sprintf("%s%s.json", c.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var author olAuthor
	if err := json.NewDecoder(resp.Body).Decode(&author); err != nil {
		return nil, err
	}

	return &author, nil
}

// validISBN accepts digits with an optional trailing X check digit.
func validISBN(isbn string) bool {
	if isbn == "" {
		return false
	}
	for i, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
		case (r == 'X' || r == 'x') && i == len(isbn)-1:
		default:
			return false
		}
	}
	return true
}

func normalizeISBN(isbn string) string {
	// Remove hyphens and spaces
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	return isbn
}
