package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erwar/bookbuddy/internal/book"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no book has the requested id.
var ErrNotFound = errors.New("book not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		isbn TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'reading',
		progress INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL DEFAULT 0,
		date_added DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
	CREATE INDEX IF NOT EXISTS idx_books_genre ON books(genre);
	`
	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Create(ctx context.Context, b *book.Book) error {
	if b.DateAdded.IsZero() {
		b.DateAdded = book.NewDate(time.Now().UTC())
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO books (isbn, title, author, genre, status, progress, notes, rating, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ISBN, b.Title, b.Author, b.Genre, b.Status, b.Progress, b.Notes, b.Rating, b.DateAdded.Time)

	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	b.ID = id

	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, isbn, title, author, genre, status, progress, notes, rating, date_added
		FROM books WHERE id = ?
	`, id)

	b, err := r.scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetAll returns every book in insertion order.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]book.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, isbn, title, author, genre, status, progress, notes, rating, date_added
		FROM books ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.scanBooks(rows)
}

// Update applies the set fields of p to book id.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, p book.Patch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, isbn, title, author, genre, status, progress, notes, rating, date_added
		FROM books WHERE id = ?
	`, id)
	b, err := r.scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	p.Apply(b)

	_, err = tx.ExecContext(ctx, `
		UPDATE books SET status = ?, progress = ?, notes = ?, rating = ?
		WHERE id = ?
	`, b.Status, b.Progress, b.Notes, b.Rating, id)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	return tx.Commit()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates the collection in SQL.
func (r *SQLiteRepository) Stats(ctx context.Context) (*book.Stats, error) {
	stats := &book.Stats{BooksByGenre: make(map[string]int)}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM books
	`, book.StatusCompleted).Scan(&stats.Total, &stats.Completed)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT genre, COUNT(id) FROM books GROUP BY genre")
	if err != nil {
		return nil, fmt.Errorf("group by genre: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var genre string
		var count int
		if err := rows.Scan(&genre, &count); err != nil {
			return nil, err
		}
		stats.BooksByGenre[genre] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.PercentCompleted = book.PercentCompleted(stats.Completed, stats.Total)
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanBook(s scanner) (*book.Book, error) {
	var b book.Book
	var dateAdded time.Time

	err := s.Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.Status,
		&b.Progress, &b.Notes, &b.Rating, &dateAdded,
	)
	if err != nil {
		return nil, err
	}
	b.DateAdded = book.NewDate(dateAdded)

	return &b, nil
}

func (r *SQLiteRepository) scanBooks(rows *sql.Rows) ([]book.Book, error) {
	books := []book.Book{}
	for rows.Next() {
		b, err := r.scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}
