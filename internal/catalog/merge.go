package catalog

import "strings"

// Store is the in-memory id → Item mapping the merge engine folds candidates into.
// It keeps first-insertion order and secondary indexes on canonical and raw URL.
// A Store has a single writer; callers must not call Merge concurrently.
type Store struct {
	items       map[string]*Item
	order       []string
	byCanonical map[string]string
	byURL       map[string]string
	// routes pins every candidate identity seen so far to the record it landed on.
	routes map[string]string
}

// MergeResult reports where a candidate ended up.
type MergeResult struct {
	ID       string
	Inserted bool
}

func NewStore() *Store {
	return &Store{
		items:       make(map[string]*Item),
		byCanonical: make(map[string]string),
		byURL:       make(map[string]string),
		routes:      make(map[string]string),
	}
}

// NewStoreFrom seeds a store with previously persisted items, in order. Items that
// collapse onto the same identity are merged like any other sighting.
func NewStoreFrom(items []Item) *Store {
	s := NewStore()
	for _, it := range items {
		s.Merge(it)
	}
	return s
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	return len(s.order)
}

// Get returns a copy of the stored item with the given id.
func (s *Store) Get(id string) (Item, bool) {
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Items returns copies of all stored items in first-insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// CanonicalFor returns the canonical URL already known for a raw aggregator URL.
func (s *Store) CanonicalFor(rawURL string) string {
	id, ok := s.byURL[strings.TrimSpace(rawURL)]
	if !ok {
		return ""
	}
	return strings.TrimSpace(s.items[id].CanonicalURL)
}

// Merge folds candidate into the store. A candidate without an id gets one from
// Identity. An identity seen before goes to the record it went to the first time.
// Otherwise the candidate is matched against existing items by canonical URL and
// then raw URL before being inserted as new. Merging the same sequence again
// leaves the store unchanged.
func (s *Store) Merge(candidate Item) MergeResult {
	EnsureID(&candidate)

	id, found := s.lookup(candidate)
	if !found {
		stored := candidate
		s.items[stored.ID] = &stored
		s.order = append(s.order, stored.ID)
		s.routes[stored.ID] = stored.ID
		s.claim(stored.CanonicalURL, stored.URL, stored.ID)
		return MergeResult{ID: stored.ID, Inserted: true}
	}

	existing := s.items[id]
	MergeFields(existing, candidate)
	if _, seen := s.routes[candidate.ID]; !seen {
		s.routes[candidate.ID] = id
	}
	s.claim(candidate.CanonicalURL, candidate.URL, id)
	s.claim(existing.CanonicalURL, existing.URL, id)
	return MergeResult{ID: existing.ID, Inserted: false}
}

func (s *Store) lookup(candidate Item) (string, bool) {
	if id, ok := s.routes[candidate.ID]; ok {
		return id, true
	}
	if u := strings.TrimSpace(candidate.CanonicalURL); u != "" {
		if id, ok := s.byCanonical[u]; ok {
			return id, true
		}
	}
	if u := strings.TrimSpace(candidate.URL); u != "" {
		if id, ok := s.byURL[u]; ok {
			return id, true
		}
	}
	return "", false
}

// claim records URL aliases for the record id. The first record to claim a URL keeps it.
func (s *Store) claim(canonicalURL, rawURL, id string) {
	if u := strings.TrimSpace(canonicalURL); u != "" {
		if _, taken := s.byCanonical[u]; !taken {
			s.byCanonical[u] = id
		}
	}
	if u := strings.TrimSpace(rawURL); u != "" {
		if _, taken := s.byURL[u]; !taken {
			s.byURL[u] = id
		}
	}
}

// MergeFields applies the field-level merge policy to existing in place:
// the id is never replaced, an unknown timestamp is adopted from candidate, and
// every descriptive or enrichment field is filled only where existing is blank.
func MergeFields(existing *Item, candidate Item) {
	if strings.TrimSpace(existing.ID) == "" {
		existing.ID = candidate.ID
	}
	if existing.PublishedTS == 0 && candidate.PublishedTS != 0 {
		existing.PublishedTS = candidate.PublishedTS
	}

	fillString(&existing.Title, candidate.Title)
	fillString(&existing.Source, candidate.Source)
	fillString(&existing.Bundle, candidate.Bundle)
	fillString(&existing.Query, candidate.Query)
	fillString(&existing.URL, candidate.URL)
	fillString(&existing.CanonicalURL, candidate.CanonicalURL)
	fillString(&existing.GUID, candidate.GUID)

	fillOptional(&existing.Blurb, candidate.Blurb)
	fillOptional(&existing.ImageURL, candidate.ImageURL)
	fillOptional(&existing.PDFPath, candidate.PDFPath)
	fillOptional(&existing.Lang, candidate.Lang)
}

func fillString(dst *string, value string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func fillOptional(dst **string, value *string) {
	if isBlank(*dst) && !isBlank(value) {
		v := *value
		*dst = &v
	}
}
