package library

import (
	"reflect"
	"testing"
)

func statsFixture(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)

	dune := testBook("Dune", "Frank Herbert", "9780441172719", "scifi", "classic")
	duneRating, dunePages := 4.5, 412
	dune.Genre = "SF"
	dune.Rating = &duneRating
	dune.Pages = &dunePages

	neuromancer := testBook("Neuromancer", "William Gibson", "9780441569595", "scifi", "cyberpunk")
	neuromancerRating := 4.2
	neuromancer.Genre = "SF"
	neuromancer.Rating = &neuromancerRating

	hyperion := testBook("Hyperion", "Dan Simmons", "9780553283686", "scifi")
	hyperionPages := 482
	hyperion.Pages = &hyperionPages

	mustAdd(t, s, dune)
	mustAdd(t, s, neuromancer)
	mustAdd(t, s, hyperion)
	return s
}

func TestStatisticsGenreBuckets(t *testing.T) {
	s := statsFixture(t)

	got := s.Statistics("genre")
	if got.TotalBooks != 3 {
		t.Errorf("expected 3 books, got %d", got.TotalBooks)
	}
	if got.GroupBy != "genre" {
		t.Errorf("expected group_by genre, got %q", got.GroupBy)
	}
	want := map[string]int{"SF": 2, "Unknown": 1}
	if !reflect.DeepEqual(got.Breakdown, want) {
		t.Errorf("expected breakdown %v, got %v", want, got.Breakdown)
	}
}

func TestStatisticsGroupByFallback(t *testing.T) {
	s := statsFixture(t)

	tests := []struct {
		name    string
		groupBy string
		want    string
	}{
		{name: "empty", groupBy: "", want: "genre"},
		{name: "unrecognized", groupBy: "publisher", want: "genre"},
		{name: "mixed case", groupBy: " Rating ", want: "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Statistics(tt.groupBy); got.GroupBy != tt.want {
				t.Errorf("expected group_by %q, got %q", tt.want, got.GroupBy)
			}
		})
	}
}

func TestStatisticsTagBuckets(t *testing.T) {
	s := statsFixture(t)

	// A book lands in one bucket per tag, so bucket totals may exceed
	// the book count.
	got := s.Statistics("tags")
	want := map[string]int{"scifi": 3, "classic": 1, "cyberpunk": 1}
	if !reflect.DeepEqual(got.Breakdown, want) {
		t.Errorf("expected breakdown %v, got %v", want, got.Breakdown)
	}
}

func TestStatisticsRatingBuckets(t *testing.T) {
	s := statsFixture(t)
	low := 3.9
	book := testBook("Flatland", "Edwin Abbott", "9780486272634")
	book.Rating = &low
	mustAdd(t, s, book)

	got := s.Statistics("rating")
	want := map[string]int{"4": 2, "3": 1, "Unknown": 1}
	if !reflect.DeepEqual(got.Breakdown, want) {
		t.Errorf("expected breakdown %v, got %v", want, got.Breakdown)
	}
}

func TestStatisticsAuthorBuckets(t *testing.T) {
	s := statsFixture(t)
	mustAdd(t, s, testBook("Children of Dune", "Frank Herbert", "9780441104024"))

	got := s.Statistics("author")
	want := map[string]int{"Frank Herbert": 2, "William Gibson": 1, "Dan Simmons": 1}
	if !reflect.DeepEqual(got.Breakdown, want) {
		t.Errorf("expected breakdown %v, got %v", want, got.Breakdown)
	}
	if got.UniqueAuthors != 3 {
		t.Errorf("expected 3 unique authors, got %d", got.UniqueAuthors)
	}
}

func TestStatisticsAggregates(t *testing.T) {
	s := statsFixture(t)

	// Averages run over the books that carry the field, not the whole
	// collection.
	got := s.Statistics("genre")
	if got.AverageRating != 4.35 {
		t.Errorf("expected average rating 4.35, got %v", got.AverageRating)
	}
	if got.TotalPages != 894 {
		t.Errorf("expected 894 total pages, got %d", got.TotalPages)
	}
	if got.AveragePages != 447 {
		t.Errorf("expected average pages 447, got %v", got.AveragePages)
	}
	if got.UniqueTags != 3 {
		t.Errorf("expected 3 unique tags, got %d", got.UniqueTags)
	}
}

func TestStatisticsAggregatesAbsent(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, testBook("Dune", "Frank Herbert", "9780441172719"))

	got := s.Statistics("genre")
	if got.AverageRating != 0 {
		t.Errorf("expected zero average rating with no rated books, got %v", got.AverageRating)
	}
	if got.TotalPages != 0 || got.AveragePages != 0 {
		t.Errorf("expected zero page aggregates, got total %d average %v", got.TotalPages, got.AveragePages)
	}
}

func TestStatisticsMostCommonTags(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, testBook("A", "a", "9780000000019", "alpha", "beta", "gamma"))
	mustAdd(t, s, testBook("B", "b", "9780000000026", "beta", "gamma", "delta"))
	mustAdd(t, s, testBook("C", "c", "9780000000033", "gamma", "epsilon", "zeta"))

	got := s.Statistics("genre")
	// gamma is most common, then the count-2 pair in first-seen order,
	// then ties at count 1 fill the list up to five entries.
	want := []string{"gamma", "beta", "alpha", "delta", "epsilon"}
	if !reflect.DeepEqual(got.MostCommonTags, want) {
		t.Errorf("expected most common tags %v, got %v", want, got.MostCommonTags)
	}
}

func TestStatisticsEmptyStore(t *testing.T) {
	s := newTestStore(t)

	got := s.Statistics("genre")
	if got.TotalBooks != 0 {
		t.Errorf("expected 0 books, got %d", got.TotalBooks)
	}
	if len(got.Breakdown) != 0 {
		t.Errorf("expected empty breakdown, got %v", got.Breakdown)
	}
	if len(got.MostCommonTags) != 0 {
		t.Errorf("expected no common tags, got %v", got.MostCommonTags)
	}
}

func TestStatisticsSnapshotIsolation(t *testing.T) {
	s := newTestStore(t, WithCache(0))
	mustAdd(t, s, testBook("Dune", "Frank Herbert", "9780441172719", "scifi"))

	first := s.Statistics("genre")
	first.Breakdown["Unknown"] = 99
	first.MostCommonTags[0] = "mutated"

	second := s.Statistics("genre")
	if second.Breakdown["Unknown"] != 1 {
		t.Errorf("cached breakdown was mutated through a returned snapshot: %v", second.Breakdown)
	}
	if second.MostCommonTags[0] != "scifi" {
		t.Errorf("cached tag list was mutated, got %v", second.MostCommonTags)
	}
}
