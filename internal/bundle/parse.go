// Package bundle turns a bundle-definition document into structured search queries
// and compiles each one into a search-engine query string.
//
// Document grammar, one directive per line:
//
//	## <name>   opens a bundle
//	+ <text>    starts a query inside the current bundle
//	- <term>    bundle-wide exclusion before the first query, otherwise an
//	            exclusion for the open query
//
// Blank lines, unrecognized lines, and lines before the first bundle are ignored.
package bundle

import (
	"errors"
	"strings"
)

const (
	bundleMarker   = "##"
	queryMarker    = '+'
	excludeMarker  = '-'
	negationPrefix = "-"
)

// ErrNoQueries is returned by ParseRequired when the document yields no query.
var ErrNoQueries = errors.New("no bundles/queries found in bundle definition")

// QuerySpec is one search query with its scoped exclusion terms. Exclusion terms are
// stored without the negation marker.
type QuerySpec struct {
	Bundle        string   `json:"bundle"`
	Include       string   `json:"include"`
	BundleExclude []string `json:"bundle_exclude"`
	QueryExclude  []string `json:"query_exclude"`
}

// parserState carries everything the line scanner needs between lines.
type parserState struct {
	bundle          string
	bundleOpen      bool
	bundleExcludes  []string
	bundleSeen      map[string]struct{}
	current         *QuerySpec
	currentExcludes map[string]struct{}
	out             []QuerySpec
}

// Parse reads a bundle document. It never fails: malformed or empty input yields an
// empty result and the caller decides whether that is fatal.
func Parse(document string) []QuerySpec {
	st := &parserState{}

	// Lines have no length limit; a huge exclusion must not hide later queries.
	for _, raw := range strings.Split(document, "\n") {
		st.line(raw)
	}
	st.flush()

	return st.out
}

// ParseRequired parses document and returns ErrNoQueries when nothing usable was found.
func ParseRequired(document string) ([]QuerySpec, error) {
	specs := Parse(document)
	if len(specs) == 0 {
		return nil, ErrNoQueries
	}
	return specs, nil
}

func (st *parserState) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	if name, ok := bundleName(line); ok {
		st.flush()
		st.bundle = name
		st.bundleOpen = true
		st.bundleExcludes = nil
		st.bundleSeen = make(map[string]struct{})
		return
	}

	if !st.bundleOpen {
		return
	}

	switch line[0] {
	case queryMarker:
		st.flush()
		st.current = &QuerySpec{
			Bundle:        st.bundle,
			Include:       collapseSpace(line[1:]),
			BundleExclude: append([]string(nil), st.bundleExcludes...),
		}
		st.currentExcludes = make(map[string]struct{})
	case excludeMarker:
		term := NormalizeTerm(line[1:])
		if term == "" {
			return
		}
		if st.current == nil {
			if _, dup := st.bundleSeen[term]; dup {
				return
			}
			st.bundleSeen[term] = struct{}{}
			st.bundleExcludes = append(st.bundleExcludes, term)
			return
		}
		if _, dup := st.currentExcludes[term]; dup {
			return
		}
		st.currentExcludes[term] = struct{}{}
		st.current.QueryExclude = append(st.current.QueryExclude, term)
	}
}

// flush closes the open query, keeping it only when it has include text.
func (st *parserState) flush() {
	if st.current == nil {
		return
	}
	if st.current.Include != "" {
		st.out = append(st.out, *st.current)
	}
	st.current = nil
	st.currentExcludes = nil
}

func bundleName(line string) (string, bool) {
	if !strings.HasPrefix(line, bundleMarker) {
		return "", false
	}
	rest := line[len(bundleMarker):]
	// "###" and "##name" are not bundle headers.
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	name := collapseSpace(rest)
	if name == "" {
		return "", false
	}
	return name, true
}

// NormalizeTerm trims an exclusion term and strips leading negation markers so that
// "-x" and "x" are stored identically.
func NormalizeTerm(raw string) string {
	term := collapseSpace(raw)
	for strings.HasPrefix(term, negationPrefix) {
		term = strings.TrimSpace(strings.TrimPrefix(term, negationPrefix))
	}
	return term
}

// CountBundles returns the number of distinct bundle names in specs.
func CountBundles(specs []QuerySpec) int {
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		seen[spec.Bundle] = struct{}{}
	}
	return len(seen)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
