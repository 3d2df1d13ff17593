package library

import (
	"fmt"
	"sort"
	"strings"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100

	defaultMaxResults = 5
	genreBonus        = 0.5
	ratingBonus       = 0.5
)

// SearchCriteria describes one search over the collection. All supplied
// filters must match (AND semantics). SearchType scopes the free-text
// Query: "all" (or empty) matches title or author, "title"/"author"/"tag"
// narrow it to that field, and "genre" switches to exact genre equality.
// Limit is clamped to [1, 100] and defaults to 10.
type SearchCriteria struct {
	Query      string
	Author     string
	Tag        string
	Genre      string
	SearchType string
	Limit      int
}

func (c SearchCriteria) normalized() SearchCriteria {
	c.Query = strings.TrimSpace(c.Query)
	c.Author = strings.TrimSpace(c.Author)
	c.Tag = strings.TrimSpace(c.Tag)
	c.Genre = strings.TrimSpace(c.Genre)
	c.SearchType = strings.ToLower(strings.TrimSpace(c.SearchType))
	if c.SearchType == "" {
		c.SearchType = "all"
	}
	if c.Limit <= 0 {
		c.Limit = defaultSearchLimit
	}
	if c.Limit > maxSearchLimit {
		c.Limit = maxSearchLimit
	}
	return c
}

func (c SearchCriteria) cacheKey() string {
	return fmt.Sprintf("search:%s|%s|%s|%s|%s|%d",
		c.Query, c.Author, c.Tag, c.Genre, c.SearchType, c.Limit)
}

func (c SearchCriteria) matches(b Book) bool {
	if c.Query != "" && !c.queryMatches(b) {
		return false
	}
	if c.Author != "" && !containsFold(b.Author, c.Author) {
		return false
	}
	if c.Tag != "" && !anyTagContains(b.Tags, c.Tag) {
		return false
	}
	if c.Genre != "" && !strings.EqualFold(b.Genre, c.Genre) {
		return false
	}
	return true
}

func (c SearchCriteria) queryMatches(b Book) bool {
	switch c.SearchType {
	case "title":
		return containsFold(b.Title, c.Query)
	case "author":
		return containsFold(b.Author, c.Query)
	case "genre":
		return strings.EqualFold(b.Genre, c.Query)
	case "tag":
		return anyTagContains(b.Tags, c.Query)
	default:
		return containsFold(b.Title, c.Query) || containsFold(b.Author, c.Query)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func anyTagContains(tags []string, substr string) bool {
	for _, tag := range tags {
		if containsFold(tag, substr) {
			return true
		}
	}
	return false
}

// Search returns up to criteria.Limit matching books in insertion order,
// with no relevance ranking. Identical criteria against an unchanged
// collection return identical results; when a cache is configured they
// are served from it.
func (s *Store) Search(criteria SearchCriteria) []Book {
	criteria = criteria.normalized()

	key := criteria.cacheKey()
	if s.cache != nil {
		if v, ok := s.cache.get(key); ok {
			return cloneBooks(v.([]Book))
		}
	}

	s.mu.RLock()
	matches := make([]Book, 0, criteria.Limit)
	for _, b := range s.books {
		if len(matches) == criteria.Limit {
			break
		}
		if criteria.matches(b) {
			matches = append(matches, b.clone())
		}
	}
	s.mu.RUnlock()

	if s.cache != nil {
		s.cache.set(key, matches)
	}

	return cloneBooks(matches)
}

// RecommendationCriteria selects one of two recommendation modes. With
// BasedOnISBN set, every other book is scored by Jaccard similarity of
// tag sets plus a 0.5 bonus for an exact genre match. Without it, a book
// scores +1 for a genre in PreferredGenres and +0.5 for a rating of at
// least MinRating. Only positive scores qualify in either mode.
type RecommendationCriteria struct {
	BasedOnISBN     string
	PreferredGenres []string
	MinRating       float64
	MaxResults      int
}

func (c RecommendationCriteria) cacheKey() string {
	return fmt.Sprintf("recommend:%s|%s|%g|%d",
		c.BasedOnISBN, strings.Join(c.PreferredGenres, ","), c.MinRating, c.MaxResults)
}

type scoredBook struct {
	book  Book
	score float64
}

// Recommendations scores the collection per the criteria mode and returns
// the top MaxResults books (default 5), ordered by descending score with
// ties kept in insertion order. In similarity mode the anchor book itself
// is never part of the result; an unknown anchor ISBN fails with
// ErrNotFound.
func (s *Store) Recommendations(criteria RecommendationCriteria) ([]Book, error) {
	if criteria.MaxResults <= 0 {
		criteria.MaxResults = defaultMaxResults
	}

	key := criteria.cacheKey()
	if s.cache != nil {
		if v, ok := s.cache.get(key); ok {
			return cloneBooks(v.([]Book)), nil
		}
	}

	var result []Book
	var err error
	if criteria.BasedOnISBN != "" {
		result, err = s.similarBooks(criteria)
	} else {
		result, err = s.preferredBooks(criteria)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.set(key, result)
	}

	return cloneBooks(result), nil
}

func (s *Store) similarBooks(criteria RecommendationCriteria) ([]Book, error) {
	normalized, err := NormalizeISBN(criteria.BasedOnISBN)
	if err != nil {
		return nil, fmt.Errorf("isbn %q: %w", criteria.BasedOnISBN, ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byISBN[normalized]
	if !ok {
		return nil, fmt.Errorf("isbn %s: %w", normalized, ErrNotFound)
	}
	anchor := s.books[i]

	scored := make([]scoredBook, 0, len(s.books))
	for _, b := range s.books {
		if b.ISBN == anchor.ISBN {
			continue
		}
		score := jaccard(anchor.Tags, b.Tags)
		if anchor.Genre != "" && strings.EqualFold(anchor.Genre, b.Genre) {
			score += genreBonus
		}
		if score > 0 {
			scored = append(scored, scoredBook{book: b.clone(), score: score})
		}
	}

	return topBooks(scored, criteria.MaxResults), nil
}

func (s *Store) preferredBooks(criteria RecommendationCriteria) ([]Book, error) {
	preferred := make(map[string]struct{}, len(criteria.PreferredGenres))
	for _, g := range criteria.PreferredGenres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			preferred[g] = struct{}{}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]scoredBook, 0, len(s.books))
	for _, b := range s.books {
		var score float64
		if _, ok := preferred[strings.ToLower(b.Genre)]; ok {
			score++
		}
		if criteria.MinRating > 0 && b.Rating != nil && *b.Rating >= criteria.MinRating {
			score += ratingBonus
		}
		if score > 0 {
			scored = append(scored, scoredBook{book: b.clone(), score: score})
		}
	}

	return topBooks(scored, criteria.MaxResults), nil
}

func topBooks(scored []scoredBook, limit int) []Book {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	books := make([]Book, 0, len(scored))
	for _, sb := range scored {
		books = append(books, sb.book)
	}
	return books
}

// jaccard is the size of the intersection of two tag sets divided by the
// size of their union, 0 when both are empty.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}

	intersection := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			intersection++
		} else {
			union++
		}
	}

	return float64(intersection) / float64(union)
}
