package catalog

import (
	"math/rand"
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestMergeInsertsUnknownCandidate(t *testing.T) {
	t.Parallel()

	s := NewStore()
	res := s.Merge(Item{URL: "https://news.example/1", Title: "One", PublishedTS: 10})
	if !res.Inserted {
		t.Fatalf("expected insert")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", s.Len())
	}
	got, ok := s.Get(res.ID)
	if !ok || got.Title != "One" {
		t.Fatalf("expected stored item, got %+v (ok=%t)", got, ok)
	}
}

func mergeAll(s *Store, candidates []Item, passes int) {
	for i := 0; i < passes; i++ {
		for _, c := range candidates {
			s.Merge(c)
		}
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		candidates []Item
	}{
		{
			name: "direct identities",
			candidates: []Item{
				{URL: "https://news.example/1", Title: "One", PublishedTS: 10},
				{CanonicalURL: "https://pub.example/2", Title: "Two", Blurb: strPtr("b")},
				{URL: "https://news.example/1", Source: "Wire", PublishedTS: 20},
				{Title: "Undated", Source: "Somewhere"},
			},
		},
		{
			name: "raw url absorbs a second canonical",
			candidates: []Item{
				{URL: "https://news.example/u1", CanonicalURL: "https://pub.example/c1", Title: "A"},
				{URL: "https://news.example/u1", CanonicalURL: "https://pub.example/c0", Source: "s1"},
				{URL: "https://news.example/u0", CanonicalURL: "https://pub.example/c0", Title: "B", PublishedTS: 5},
			},
		},
		{
			name: "canonical upgrade after raw sighting",
			candidates: []Item{
				{URL: "https://news.example/u1", Title: "Raw"},
				{URL: "https://news.example/u2", CanonicalURL: "https://pub.example/c1", Source: "s2"},
				{URL: "https://news.example/u1", CanonicalURL: "https://pub.example/c1", Blurb: strPtr("late")},
				{URL: "https://news.example/u3", CanonicalURL: "https://pub.example/c1", PublishedTS: 9},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			once := NewStore()
			mergeAll(once, tt.candidates, 1)
			twice := NewStore()
			mergeAll(twice, tt.candidates, 2)

			if !reflect.DeepEqual(once.Items(), twice.Items()) {
				t.Fatalf("expected identical stores\nonce:  %+v\ntwice: %+v", once.Items(), twice.Items())
			}
		})
	}
}

func TestMergeRepeatSightingLandsOnAbsorbingRecord(t *testing.T) {
	t.Parallel()

	s := NewStore()
	a := s.Merge(Item{URL: "https://news.example/u1", CanonicalURL: "https://pub.example/c1", Title: "A"})
	absorbed := s.Merge(Item{URL: "https://news.example/u1", CanonicalURL: "https://pub.example/c0", Source: "s1"})
	later := s.Merge(Item{URL: "https://news.example/u0", CanonicalURL: "https://pub.example/c0", Title: "B", PublishedTS: 5})

	if absorbed.Inserted || absorbed.ID != a.ID {
		t.Fatalf("expected raw url alias to absorb candidate into %s, got %+v", a.ID, absorbed)
	}
	if later.Inserted || later.ID != a.ID {
		t.Fatalf("expected absorbed canonical to keep routing to %s, got %+v", a.ID, later)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 stored item, got %d", s.Len())
	}
	got, _ := s.Get(a.ID)
	if got.Title != "A" || got.Source != "s1" || got.PublishedTS != 5 {
		t.Fatalf("expected fill-if-blank fold into A, got %+v", got)
	}
}

func TestMergeIsIdempotentForRandomSequences(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(20260213))
	pick := func(pool []string) string { return pool[rng.Intn(len(pool))] }

	urls := []string{"", "https://news.example/u0", "https://news.example/u1", "https://news.example/u2"}
	canonicals := []string{"", "https://pub.example/c0", "https://pub.example/c1", "https://pub.example/c2"}
	titles := []string{"", "A", "B"}
	sources := []string{"", "s1", "s2"}

	for trial := 0; trial < 2000; trial++ {
		candidates := make([]Item, 1+rng.Intn(8))
		for i := range candidates {
			candidates[i] = Item{
				URL:          pick(urls),
				CanonicalURL: pick(canonicals),
				Title:        pick(titles),
				Source:       pick(sources),
				PublishedTS:  int64(rng.Intn(3)),
			}
			if rng.Intn(4) == 0 {
				candidates[i].Blurb = strPtr(pick(titles))
			}
		}

		once := NewStore()
		mergeAll(once, candidates, 1)
		twice := NewStore()
		mergeAll(twice, candidates, 2)

		if !reflect.DeepEqual(once.Items(), twice.Items()) {
			t.Fatalf("trial %d: expected identical stores for %+v\nonce:  %+v\ntwice: %+v",
				trial, candidates, once.Items(), twice.Items())
		}
	}
}

func TestMergeFillIfBlank(t *testing.T) {
	t.Parallel()

	existing := Item{
		ID:          "id-1",
		Title:       "Original title",
		Source:      "",
		Bundle:      "Tech",
		URL:         "https://news.example/1",
		PublishedTS: 100,
		Blurb:       strPtr("kept blurb"),
	}
	candidate := Item{
		ID:           "id-2",
		Title:        "New title",
		Source:       "Wire",
		Bundle:       "Other",
		Query:        "q",
		CanonicalURL: "https://pub.example/1",
		GUID:         "g-1",
		PublishedTS:  200,
		Blurb:        strPtr("new blurb"),
		ImageURL:     strPtr("https://img.example/1.jpg"),
		PDFPath:      strPtr("clips/1.pdf"),
	}

	MergeFields(&existing, candidate)

	if existing.ID != "id-1" {
		t.Fatalf("expected id to be preserved, got %s", existing.ID)
	}
	if existing.PublishedTS != 100 {
		t.Fatalf("expected existing timestamp to win, got %d", existing.PublishedTS)
	}
	if existing.Title != "Original title" || existing.Bundle != "Tech" {
		t.Fatalf("expected populated fields untouched, got title=%q bundle=%q", existing.Title, existing.Bundle)
	}
	if existing.Source != "Wire" || existing.Query != "q" || existing.GUID != "g-1" {
		t.Fatalf("expected blank fields filled, got %+v", existing)
	}
	if existing.CanonicalURL != "https://pub.example/1" {
		t.Fatalf("expected canonical URL upgrade, got %q", existing.CanonicalURL)
	}
	if Value(existing.Blurb) != "kept blurb" {
		t.Fatalf("expected prior enrichment kept, got %q", Value(existing.Blurb))
	}
	if Value(existing.ImageURL) != "https://img.example/1.jpg" || Value(existing.PDFPath) != "clips/1.pdf" {
		t.Fatalf("expected missing enrichment filled, got image=%q pdf=%q", Value(existing.ImageURL), Value(existing.PDFPath))
	}
}

func TestMergeAdoptsTimestampWhenUnknown(t *testing.T) {
	t.Parallel()

	existing := Item{ID: "a"}
	MergeFields(&existing, Item{PublishedTS: 42})
	if existing.PublishedTS != 42 {
		t.Fatalf("expected unknown timestamp to be adopted, got %d", existing.PublishedTS)
	}
}

func TestMergeEmptyOptionalDoesNotCount(t *testing.T) {
	t.Parallel()

	existing := Item{ID: "a", Blurb: strPtr("  ")}
	MergeFields(&existing, Item{Blurb: strPtr("real")})
	if Value(existing.Blurb) != "real" {
		t.Fatalf("expected whitespace-only blurb to be treated as blank, got %q", Value(existing.Blurb))
	}
}

func TestMergeSameArticleFromTwoAggregatorURLs(t *testing.T) {
	t.Parallel()

	s := NewStore()
	first := s.Merge(Item{
		URL:          "https://news.example/rss/articles/AAA",
		CanonicalURL: "https://pub.example/a",
		Title:        "Story",
		PublishedTS:  1000,
	})
	second := s.Merge(Item{
		URL:          "https://news.example/rss/articles/BBB",
		CanonicalURL: "https://pub.example/a",
		Title:        "Story (updated)",
		PublishedTS:  2000,
	})

	if !first.Inserted || second.Inserted {
		t.Fatalf("expected first insert then merge, got %+v then %+v", first, second)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same stored item, got %s and %s", first.ID, second.ID)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 stored item, got %d", s.Len())
	}
	got, _ := s.Get(first.ID)
	if got.PublishedTS != 1000 || got.Title != "Story" {
		t.Fatalf("expected first sighting to win, got %+v", got)
	}
}

func TestMergeAliasKeepsIDAfterCanonicalUpgrade(t *testing.T) {
	t.Parallel()

	s := NewStore()
	raw := "https://news.example/rss/articles/AAA"
	first := s.Merge(Item{URL: raw, Title: "Story", PublishedTS: 1000})

	// A later run resolves the same raw URL.
	second := s.Merge(Item{URL: raw, CanonicalURL: "https://pub.example/a", PublishedTS: 1000})
	if second.ID != first.ID || second.Inserted {
		t.Fatalf("expected raw URL alias to merge, got %+v", second)
	}

	// Another aggregator link to the same publisher URL now lands on the same item.
	third := s.Merge(Item{URL: "https://news.example/rss/articles/CCC", CanonicalURL: "https://pub.example/a"})
	if third.ID != first.ID || third.Inserted {
		t.Fatalf("expected canonical alias to merge, got %+v", third)
	}

	got, _ := s.Get(first.ID)
	if got.CanonicalURL != "https://pub.example/a" {
		t.Fatalf("expected canonical URL upgrade, got %q", got.CanonicalURL)
	}
	if s.CanonicalFor(raw) != "https://pub.example/a" {
		t.Fatalf("expected canonical lookup for raw URL, got %q", s.CanonicalFor(raw))
	}
}

func TestNewStoreFromCollapsesDuplicatesAndKeepsOrder(t *testing.T) {
	t.Parallel()

	s := NewStoreFrom([]Item{
		{ID: "b", Title: "B", PublishedTS: 2},
		{ID: "a", Title: "A", PublishedTS: 1},
		{ID: "b", Source: "late source"},
	})
	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "b" || items[1].ID != "a" {
		t.Fatalf("expected insertion order b,a got %s,%s", items[0].ID, items[1].ID)
	}
	if items[0].Source != "late source" {
		t.Fatalf("expected duplicate to fill blank source, got %q", items[0].Source)
	}
}

func TestItemsReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewStore()
	res := s.Merge(Item{URL: "https://news.example/1", Title: "One"})
	items := s.Items()
	items[0].Title = "mutated"

	got, _ := s.Get(res.ID)
	if got.Title != "One" {
		t.Fatalf("expected store to be unaffected by caller mutation, got %q", got.Title)
	}
}
