package library

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLen       = 500
	maxAuthorLen      = 200
	maxDescriptionLen = 2000
	maxTagLen         = 50
	maxTags           = 20
)

var (
	isbn10Pattern = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13Pattern = regexp.MustCompile(`^\d{13}$`)
)

// Book is a single record in the library collection. ISBN is the unique
// identifier across the whole collection, stored normalized to digits plus
// an optional trailing 'X'. Tags are stored trimmed, lowercased and
// deduplicated. AddedDate is stamped when the book enters the library.
type Book struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	ISBN          string   `json:"isbn"`
	Tags          []string `json:"tags"`
	Genre         string   `json:"genre,omitempty"`
	YearPublished *int     `json:"year_published,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	Description   string   `json:"description,omitempty"`
	Pages         *int     `json:"pages,omitempty"`
	Language      string   `json:"language,omitempty"`
	AddedDate     string   `json:"added_date,omitempty"`
}

// UpdateBook is a partial patch for an existing book. Only non-nil fields
// are applied; the ISBN itself cannot be changed through an update.
type UpdateBook struct {
	Title         *string   `json:"title,omitempty"`
	Author        *string   `json:"author,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Genre         *string   `json:"genre,omitempty"`
	YearPublished *int      `json:"year_published,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Pages         *int      `json:"pages,omitempty"`
	Language      *string   `json:"language,omitempty"`
}

// ValidationError reports the field that failed validation and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NormalizeISBN strips every character except digits and 'X' from an ISBN,
// uppercases it, and validates the result against the ISBN-10 shape
// (9 digits plus a digit or 'X') or the ISBN-13 shape (13 digits).
func NormalizeISBN(isbn string) (string, error) {
	if strings.TrimSpace(isbn) == "" {
		return "", errors.New("ISBN cannot be empty")
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(isbn) {
		if (r >= '0' && r <= '9') || r == 'X' {
			b.WriteRune(r)
		}
	}
	clean := b.String()

	switch len(clean) {
	case 10:
		if !isbn10Pattern.MatchString(clean) {
			return "", errors.New("Invalid ISBN-10 format")
		}
	case 13:
		if !isbn13Pattern.MatchString(clean) {
			return "", errors.New("Invalid ISBN-13 format")
		}
	default:
		return "", errors.New("ISBN must be 10 or 13 digits")
	}

	return clean, nil
}

// NormalizeTags trims and lowercases each tag, drops empty and overlong
// ones, and deduplicates preserving first-seen order. At most 20 tags are
// kept. The result is never nil.
func NormalizeTags(tags []string) []string {
	clean := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || utf8.RuneCountInString(t) > maxTagLen {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		clean = append(clean, t)
		if len(clean) == maxTags {
			break
		}
	}
	return clean
}

// ValidateBook checks every field of a book against the collection's rules
// and returns a normalized copy. It is pure: no I/O, no mutation of the
// input. Failures are reported as *ValidationError naming the field.
func ValidateBook(b Book) (Book, error) {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return Book{}, &ValidationError{Field: "title", Reason: "cannot be empty or only whitespace"}
	}
	if utf8.RuneCountInString(b.Title) > maxTitleLen {
		return Book{}, &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxTitleLen)}
	}

	b.Author = strings.TrimSpace(b.Author)
	if b.Author == "" {
		return Book{}, &ValidationError{Field: "author", Reason: "cannot be empty or only whitespace"}
	}
	if utf8.RuneCountInString(b.Author) > maxAuthorLen {
		return Book{}, &ValidationError{Field: "author", Reason: fmt.Sprintf("must be at most %d characters", maxAuthorLen)}
	}

	isbn, err := NormalizeISBN(b.ISBN)
	if err != nil {
		return Book{}, &ValidationError{Field: "isbn", Reason: err.Error()}
	}
	b.ISBN = isbn

	b.Tags = NormalizeTags(b.Tags)

	b.Genre = strings.TrimSpace(b.Genre)

	if b.Rating != nil && (*b.Rating < 1 || *b.Rating > 5) {
		return Book{}, &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	if b.Pages != nil && *b.Pages <= 0 {
		return Book{}, &ValidationError{Field: "pages", Reason: "must be greater than 0"}
	}

	b.Description = strings.TrimSpace(b.Description)
	if utf8.RuneCountInString(b.Description) > maxDescriptionLen {
		return Book{}, &ValidationError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", maxDescriptionLen)}
	}

	b.Language = strings.TrimSpace(b.Language)
	if b.Language == "" {
		b.Language = "English"
	}

	return b, nil
}

func applyPatch(b Book, patch UpdateBook) Book {
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Author != nil {
		b.Author = *patch.Author
	}
	if patch.Tags != nil {
		b.Tags = *patch.Tags
	}
	if patch.Genre != nil {
		b.Genre = *patch.Genre
	}
	if patch.YearPublished != nil {
		v := *patch.YearPublished
		b.YearPublished = &v
	}
	if patch.Rating != nil {
		v := *patch.Rating
		b.Rating = &v
	}
	if patch.Description != nil {
		b.Description = *patch.Description
	}
	if patch.Pages != nil {
		v := *patch.Pages
		b.Pages = &v
	}
	if patch.Language != nil {
		b.Language = *patch.Language
	}
	return b
}

func (b Book) clone() Book {
	c := b
	c.Tags = make([]string, len(b.Tags))
	copy(c.Tags, b.Tags)
	if b.YearPublished != nil {
		v := *b.YearPublished
		c.YearPublished = &v
	}
	if b.Rating != nil {
		v := *b.Rating
		c.Rating = &v
	}
	if b.Pages != nil {
		v := *b.Pages
		c.Pages = &v
	}
	return c
}
