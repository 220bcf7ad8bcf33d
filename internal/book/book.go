package book

import (
	"fmt"
	"strings"
	"time"
)

type Book struct {
	ID        int64  `json:"id"`
	ISBN      string `json:"isbn,omitempty"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Genre     string `json:"genre"`
	Status    Status `json:"status"`
	Progress  int    `json:"progress"` // 0-100
	Rating    int    `json:"rating"`   // 0 = unrated, 1-5 stars
	Notes     string `json:"notes"`
	DateAdded Date   `json:"date_added"`
}

type Status string

const (
	StatusReading   Status = "reading"
	StatusCompleted Status = "completed"
	StatusWishlist  Status = "wishlist"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusReading, StatusCompleted, StatusWishlist:
		return true
	}
	return false
}

// Date is a calendar day. The backend writes YYYY-MM-DD, but full RFC 3339
// timestamps are accepted on decode.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(t time.Time) Date {
	return Date{Time: t}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Draft is the creatable subset of Book, as held by the new-book form.
type Draft struct {
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Genre    string `json:"genre"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Rating   int    `json:"rating"`
}

func DefaultDraft() Draft {
	return Draft{Status: StatusReading}
}

// Validate checks the ranges the backend would reject. Empty title and author
// are allowed.
func (d Draft) Validate() error {
	if !d.Status.IsValid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status: %s (use: reading, completed, wishlist)", d.Status)}
	}
	if d.Progress < 0 || d.Progress > 100 {
		return &ValidationError{Field: "progress", Message: "progress must be between 0 and 100"}
	}
	if d.Rating < 0 || d.Rating > 5 {
		return &ValidationError{Field: "rating", Message: "rating must be between 0 and 5"}
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched by the backend.
type Patch struct {
	Notes    *string `json:"notes,omitempty"`
	Rating   *int    `json:"rating,omitempty"`
	Progress *int    `json:"progress,omitempty"`
	Status   *Status `json:"status,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Notes == nil && p.Rating == nil && p.Progress == nil && p.Status == nil
}

// Apply writes the set fields of p onto b.
func (p Patch) Apply(b *Book) {
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Rating != nil {
		b.Rating = *p.Rating
	}
	if p.Progress != nil {
		b.Progress = *p.Progress
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
}

type Stats struct {
	Total            int            `json:"total"`
	Completed        int            `json:"completed"`
	PercentCompleted float64        `json:"percent_completed"`
	BooksByGenre     map[string]int `json:"books_by_genre"`
}

// PercentCompleted returns completed/total*100, or 0 for an empty collection.
func PercentCompleted(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

type Recommendation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	Genre       string `json:"genre,omitempty"`
}
