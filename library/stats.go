package library

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	unknownBucket      = "Unknown"
	mostCommonTagCount = 5
)

// Statistics is a derived snapshot of the collection: the total count, a
// breakdown of one grouping field into buckets, and aggregate metrics
// computed only over the books that carry the relevant field.
type Statistics struct {
	TotalBooks     int            `json:"total_books"`
	GroupBy        string         `json:"group_by"`
	Breakdown      map[string]int `json:"breakdown"`
	UniqueAuthors  int            `json:"unique_authors"`
	UniqueTags     int            `json:"unique_tags"`
	MostCommonTags []string       `json:"most_common_tags"`
	AverageRating  float64        `json:"average_rating,omitempty"`
	TotalPages     int            `json:"total_pages,omitempty"`
	AveragePages   float64        `json:"average_pages,omitempty"`
}

func (st Statistics) clone() Statistics {
	c := st
	c.Breakdown = make(map[string]int, len(st.Breakdown))
	for k, v := range st.Breakdown {
		c.Breakdown[k] = v
	}
	c.MostCommonTags = append([]string{}, st.MostCommonTags...)
	return c
}

// Statistics recomputes the snapshot on demand, or serves it from the
// query cache when one is configured. groupBy selects the breakdown
// field: genre (the default), author, language, rating or tags. Grouping
// by tags counts one bucket per tag per book; rating buckets are the
// integer floor of the rating; books missing the grouping field count
// under "Unknown". Unrecognized grouping fields fall back to genre.
func (s *Store) Statistics(groupBy string) Statistics {
	groupBy = strings.ToLower(strings.TrimSpace(groupBy))
	switch groupBy {
	case "genre", "author", "language", "rating", "tags":
	default:
		groupBy = "genre"
	}

	key := "stats:" + groupBy
	if s.cache != nil {
		if v, ok := s.cache.get(key); ok {
			return v.(Statistics).clone()
		}
	}

	s.mu.RLock()
	stats := computeStatistics(s.books, groupBy)
	s.mu.RUnlock()

	if s.cache != nil {
		s.cache.set(key, stats.clone())
	}

	return stats
}

func computeStatistics(books []Book, groupBy string) Statistics {
	stats := Statistics{
		TotalBooks: len(books),
		GroupBy:    groupBy,
		Breakdown:  make(map[string]int),
	}

	authors := make(map[string]struct{})
	tagCounts := make(map[string]int)
	var tagOrder []string

	ratedBooks := 0
	var ratingSum float64
	pagedBooks := 0
	totalPages := 0

	for _, b := range books {
		authors[b.Author] = struct{}{}
		for _, tag := range b.Tags {
			if tagCounts[tag] == 0 {
				tagOrder = append(tagOrder, tag)
			}
			tagCounts[tag]++
		}
		if b.Rating != nil {
			ratedBooks++
			ratingSum += *b.Rating
		}
		if b.Pages != nil {
			pagedBooks++
			totalPages += *b.Pages
		}

		for _, bucket := range groupBuckets(b, groupBy) {
			stats.Breakdown[bucket]++
		}
	}

	stats.UniqueAuthors = len(authors)
	stats.UniqueTags = len(tagCounts)
	stats.MostCommonTags = topTags(tagCounts, tagOrder, mostCommonTagCount)
	if ratedBooks > 0 {
		stats.AverageRating = round2(ratingSum / float64(ratedBooks))
	}
	if pagedBooks > 0 {
		stats.TotalPages = totalPages
		stats.AveragePages = round2(float64(totalPages) / float64(pagedBooks))
	}

	return stats
}

func groupBuckets(b Book, groupBy string) []string {
	switch groupBy {
	case "author":
		if b.Author == "" {
			return []string{unknownBucket}
		}
		return []string{b.Author}
	case "language":
		if b.Language == "" {
			return []string{unknownBucket}
		}
		return []string{b.Language}
	case "rating":
		if b.Rating == nil {
			return []string{unknownBucket}
		}
		return []string{strconv.Itoa(int(*b.Rating))}
	case "tags":
		if len(b.Tags) == 0 {
			return []string{unknownBucket}
		}
		return b.Tags
	default:
		if b.Genre == "" {
			return []string{unknownBucket}
		}
		return []string{b.Genre}
	}
}

func topTags(counts map[string]int, order []string, n int) []string {
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return append([]string{}, order...)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
