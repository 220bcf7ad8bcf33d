package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erwar/bookbuddy/internal/api"
	"github.com/erwar/bookbuddy/internal/book"
	"github.com/erwar/bookbuddy/internal/config"
	"github.com/erwar/bookbuddy/internal/scraper"
	"github.com/erwar/bookbuddy/internal/search"
	"github.com/erwar/bookbuddy/internal/tracker"
)

var (
	apiURL  string
	isbnURL string
)

func main() {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "bookbuddy",
		Short: "Book Buddy - track what you read",
		Long: `Book Buddy keeps your reading list in sync with a Book Buddy backend.
Track progress, rate and annotate books, and ask for AI summaries, reviews
and similar-book recommendations.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", cfg.APIURL, "Book Buddy backend URL")
	rootCmd.PersistentFlags().StringVar(&isbnURL, "isbn-url", cfg.ISBNLookupURL, "ISBN lookup service URL")

	rootCmd.AddCommand(
		listCmd(),
		showCmd(),
		searchCmd(),
		statsCmd(),
		addCmd(),
		lookupCmd(),
		noteCmd(),
		progressCmd(),
		statusCmd(),
		rateCmd(),
		summarizeCmd(),
		reviewCmd(),
		recommendCmd(),
		deleteCmd(),
		exportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initTracker builds a tracker and loads the collection and stats.
func initTracker(ctx context.Context) (*tracker.Tracker, error) {
	t := tracker.New(api.NewClient(apiURL), scraper.NewOpenLibraryClient(isbnURL))
	if err := t.Load(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid book ID: %s", s)
	}
	return id, nil
}

func listCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books in your collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !book.Status(status).IsValid() {
				return fmt.Errorf("invalid status: %s", status)
			}

			t, err := initTracker(cmd.Context())
			if err != nil {
				return err
			}

			var shown int
			for _, v := range t.Views() {
				if status != "" && v.Book.Status != book.Status(status) {
					continue
				}
				printBookShort(v.Book)
				shown++
			}

			if shown == 0 {
				fmt.Println("No books found.")
				return nil
			}
			fmt.Printf("\nTotal: %d books\n", shown)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (reading, completed, wishlist)")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [book-id]",
		Short: "Show details of a specific book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			t, err := initTracker(cmd.Context())
			if err != nil {
				return err
			}

			v, err := t.View(id)
			if err != nil {
				return err
			}
			printBookFull(v)
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search your collection by title, author, genre and notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := initTracker(cmd.Context())
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			results := search.Search(t.State.Books(), query, limit)
			if len(results) == 0 {
				fmt.Println("No matching books found.")
				return nil
			}

			fmt.Printf("Found %d books:\n\n", len(results))
			for _, r := range results {
				printBookShort(r.Book)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum number of results")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show reading statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := initTracker(cmd.Context())
			if err != nil {
				return err
			}

			stats, _ := t.Stats.Current()
			fmt.Println("=== Reading Stats ===")
			fmt.Printf("Total books: %d\n", stats.Total)
			fmt.Printf("Completed:   %d\n", stats.Completed)
			fmt.Printf("Completed %%: %.2f%%\n", stats.PercentCompleted)

			if len(stats.BooksByGenre) > 0 {
				fmt.Println()
				fmt.Println("Books by genre:")
				for _, genre := range sortedGenres(stats.BooksByGenre) {
					label := genre
					if label == "" {
						label = "(none)"
					}
					fmt.Printf("  %s: %d\n", label, stats.BooksByGenre[genre])
				}
			}
			return nil
		},
	}
}

func addCmd() *cobra.Command {
	var isbn, title, author, genre, status string
	var progress, rating int
	var autofill bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new book to your collection",
		Long: `Add a book. With --autofill the title and author are looked up by ISBN
first; values found on the record replace the ones given on the command line.

Examples:
  bookbuddy add -t "Dune" -a "Frank Herbert" -g "Sci-Fi" -p 40
  bookbuddy add --isbn 9780441013593 --autofill -g "Sci-Fi"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}

			t.Draft.Edit(func(d *book.Draft) {
				d.ISBN = isbn
				d.Title = title
				d.Author = author
				d.Genre = genre
				d.Status = book.Status(status)
				d.Progress = progress
				d.Rating = rating
			})

			if autofill {
				fmt.Printf("Looking up ISBN %s...\n", isbn)
				if err := t.Draft.Autofill(ctx); err != nil {
					return err
				}
			}

			b, err := t.Collection.Create(ctx, t.Draft)
			if b == nil {
				return err
			}
			fmt.Printf("Added: %s by %s (ID: %d)\n", b.Title, b.Author, b.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN (optional)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "book title")
	cmd.Flags().StringVarP(&author, "author", "a", "", "book author")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "book genre")
	cmd.Flags().StringVarP(&status, "status", "s", "reading", "reading status (reading, completed, wishlist)")
	cmd.Flags().IntVarP(&progress, "progress", "p", 0, "progress in percent (0-100)")
	cmd.Flags().IntVarP(&rating, "rating", "r", 0, "your rating (1-5)")
	cmd.Flags().BoolVar(&autofill, "autofill", false, "fill title and author from the ISBN record")

	return cmd
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [isbn]",
		Short: "Look up title and author by ISBN without adding the book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := tracker.NewDraftForm(scraper.NewOpenLibraryClient(isbnURL))
			form.Edit(func(d *book.Draft) { d.ISBN = args[0] })

			if err := form.Autofill(cmd.Context()); err != nil {
				return err
			}

			d := form.Draft()
			fmt.Printf("ISBN:   %s\n", d.ISBN)
			fmt.Printf("Title:  %s\n", d.Title)
			fmt.Printf("Author: %s\n", d.Author)
			return nil
		},
	}
}

func noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note [book-id] [text...]",
		Short: "Save your notes for a book",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}

			if err := t.Collection.EditNote(id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			if err := t.Collection.SaveNote(ctx, id); err != nil {
				return err
			}

			fmt.Println("Note saved!")
			return nil
		},
	}
}

func progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress [book-id] [percent]",
		Short: "Update reading progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			progress, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid progress: %s", args[1])
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}
			if err := t.Collection.SetProgress(ctx, id, progress); err != nil {
				return err
			}

			fmt.Printf("Progress: %d%%\n", progress)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [book-id] [reading|completed|wishlist]",
		Short: "Change a book's reading status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}
			if err := t.Collection.SetStatus(ctx, id, book.Status(args[1])); err != nil {
				return err
			}

			fmt.Printf("Status: %s\n", args[1])
			return nil
		},
	}
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate [book-id] [1-5]",
		Short: "Rate a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stars, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating: %s", args[1])
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}
			if err := t.Ratings.Rate(ctx, id, stars); err != nil {
				return err
			}

			b, _ := t.State.Book(id)
			fmt.Printf("%s: %s\n", b.Title, ratingStars(b.Rating))
			return nil
		},
	}
}

func summarizeCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "summarize [book-id]",
		Short: "Generate an AI summary of your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("note") {
				if err := t.Collection.EditNote(id, note); err != nil {
					return err
				}
			}

			summary, err := t.Enrichment.Summarize(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("Summary: %s\n", summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "summarize this text instead of the saved note (not saved)")
	return cmd
}

func reviewCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "review [book-id]",
		Short: "Generate an AI review from your notes and rating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("note") {
				if err := t.Collection.EditNote(id, note); err != nil {
					return err
				}
			}

			review, err := t.Enrichment.Review(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("AI Review: %s\n", review)
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "review from this text instead of the saved note (not saved)")
	return cmd
}

func recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend [book-id]",
		Short: "Recommend books similar to one in your collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}

			recs, err := t.Enrichment.Recommend(ctx, id)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No recommendations found.")
				return nil
			}

			fmt.Println("Recommended books:")
			for _, r := range recs {
				fmt.Printf("  %s by %s\n", r.Title, r.Author)
			}

			if shelf := search.SameGenre(t.State.Books(), id); len(shelf) > 0 {
				fmt.Println("\nAlready on your shelf:")
				for _, b := range shelf {
					fmt.Printf("  %s by %s\n", b.Title, b.Author)
				}
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [book-id]",
		Short: "Delete a book from your collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			t, err := initTracker(ctx)
			if err != nil {
				return err
			}

			confirm := tracker.ConfirmFunc(func(b book.Book) bool {
				return yes || prompt(os.Stdin, fmt.Sprintf("Delete %q? [y/N]: ", b.Title))
			})

			err = t.Collection.Remove(ctx, id, confirm)
			if errors.Is(err, book.ErrNotConfirmed) {
				fmt.Println("Cancelled.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Println("Book deleted!")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func exportCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your book collection to JSON or CSV",
		Long: `Export all books in your collection.

Examples:
  bookbuddy export                     # JSON to stdout
  bookbuddy export -f csv -o books.csv # CSV to file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := initTracker(cmd.Context())
			if err != nil {
				return err
			}

			books := t.State.Books()
			if len(books) == 0 {
				fmt.Println("No books to export.")
				return nil
			}

			var out io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if err := writeBooks(out, format, books); err != nil {
				return err
			}

			if output != "" {
				fmt.Printf("Exported %d books to %s\n", len(books), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// sortedGenres orders genres by count, then name.
func sortedGenres(byGenre map[string]int) []string {
	genres := make([]string, 0, len(byGenre))
	for genre := range byGenre {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool {
		if byGenre[genres[i]] != byGenre[genres[j]] {
			return byGenre[genres[i]] > byGenre[genres[j]]
		}
		return genres[i] < genres[j]
	})
	return genres
}

func writeBooks(w io.Writer, format string, books []book.Book) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(books); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}

	case "csv":
		cw := csv.NewWriter(w)
		cw.Write([]string{"ID", "ISBN", "Title", "Author", "Genre", "Status", "Progress", "Rating", "Notes", "DateAdded"})
		for _, b := range books {
			dateAdded := ""
			if !b.DateAdded.IsZero() {
				dateAdded = b.DateAdded.Format("2006-01-02")
			}
			cw.Write([]string{
				strconv.FormatInt(b.ID, 10),
				b.ISBN,
				b.Title,
				b.Author,
				b.Genre,
				string(b.Status),
				strconv.Itoa(b.Progress),
				strconv.Itoa(b.Rating),
				b.Notes,
				dateAdded,
			})
		}
		cw.Flush()
		return cw.Error()

	default:
		return fmt.Errorf("unknown format: %s (use json or csv)", format)
	}
	return nil
}

func prompt(in io.Reader, question string) bool {
	fmt.Print(question)
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}

func ratingStars(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func printBookShort(b book.Book) {
	fmt.Printf("[%d] %s by %s", b.ID, b.Title, b.Author)
	if b.Rating > 0 {
		fmt.Printf(" %s", strings.Repeat("*", b.Rating))
	}
	fmt.Printf(" [%s] %d%%\n", b.Status, b.Progress)
}

func printBookFull(v tracker.BookView) {
	b := v.Book
	fmt.Printf("ID:       %d\n", b.ID)
	fmt.Printf("Title:    %s\n", b.Title)
	fmt.Printf("Author:   %s\n", b.Author)
	if b.ISBN != "" {
		fmt.Printf("ISBN:     %s\n", b.ISBN)
	}
	if b.Genre != "" {
		fmt.Printf("Genre:    %s\n", b.Genre)
	}
	fmt.Printf("Status:   %s\n", b.Status)
	fmt.Printf("Progress: %d%%\n", b.Progress)
	if b.Rating > 0 {
		fmt.Printf("Rating:   %s (%d/5)\n", strings.Repeat("*", b.Rating), b.Rating)
	}
	fmt.Printf("Summary:  %s\n", v.DisplaySummary())
	if !b.DateAdded.IsZero() {
		fmt.Printf("Added:    %s\n", b.DateAdded.Format("2006-01-02"))
	}
}
