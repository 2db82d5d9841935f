package bundle

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseScopedExclusions(t *testing.T) {
	t.Parallel()

	doc := "## Tech\n- rumor\n+ apple vision pro\n- leak\n"
	specs := Parse(doc)
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d (%+v)", len(specs), specs)
	}

	want := QuerySpec{
		Bundle:        "Tech",
		Include:       "apple vision pro",
		BundleExclude: []string{"rumor"},
		QueryExclude:  []string{"leak"},
	}
	if !reflect.DeepEqual(specs[0], want) {
		t.Fatalf("unexpected spec\nwant: %+v\ngot:  %+v", want, specs[0])
	}
	if got := Compile(specs[0]); got != "apple vision pro -rumor -leak" {
		t.Fatalf("unexpected compiled query: %q", got)
	}
}

func TestParseBundleExclusionAppliesToEveryQuery(t *testing.T) {
	t.Parallel()

	doc := `
## Energy
- opinion
+ solar tariffs
- stocks
+ wind farm approval
- lawsuit
- lawsuit
`
	specs := Parse(doc)
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	for _, spec := range specs {
		if !reflect.DeepEqual(spec.BundleExclude, []string{"opinion"}) {
			t.Fatalf("expected bundle exclusion on %q, got %v", spec.Include, spec.BundleExclude)
		}
	}
	if !reflect.DeepEqual(specs[0].QueryExclude, []string{"stocks"}) {
		t.Fatalf("unexpected first query exclusions: %v", specs[0].QueryExclude)
	}
	if !reflect.DeepEqual(specs[1].QueryExclude, []string{"lawsuit"}) {
		t.Fatalf("unexpected second query exclusions: %v", specs[1].QueryExclude)
	}
}

func TestParseResetsBundleExclusionsOnNewBundle(t *testing.T) {
	t.Parallel()

	doc := "## A\n- alpha\n+ first\n## B\n+ second\n"
	specs := Parse(doc)
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[1].Bundle != "B" {
		t.Fatalf("expected second spec in bundle B, got %q", specs[1].Bundle)
	}
	if len(specs[1].BundleExclude) != 0 {
		t.Fatalf("expected no carried exclusions into bundle B, got %v", specs[1].BundleExclude)
	}
}

func TestParseNormalizesNegationMarker(t *testing.T) {
	t.Parallel()

	specs := Parse("## N\n- -rumor\n- rumor\n+ chips\n- - -leak\n")
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if !reflect.DeepEqual(specs[0].BundleExclude, []string{"rumor"}) {
		t.Fatalf("expected deduplicated normalized bundle exclusion, got %v", specs[0].BundleExclude)
	}
	if !reflect.DeepEqual(specs[0].QueryExclude, []string{"leak"}) {
		t.Fatalf("expected normalized query exclusion, got %v", specs[0].QueryExclude)
	}
}

func TestParseIgnoresLinesOutsideBundles(t *testing.T) {
	t.Parallel()

	doc := "# Title\n+ orphan query\n- orphan exclusion\n\n   \n## Real\n+ kept\n"
	specs := Parse(doc)
	if len(specs) != 1 || specs[0].Include != "kept" {
		t.Fatalf("expected only the bundled query, got %+v", specs)
	}
	if len(specs[0].BundleExclude) != 0 {
		t.Fatalf("expected orphan exclusion to be ignored, got %v", specs[0].BundleExclude)
	}
}

func TestParseDiscardsEmptyInclude(t *testing.T) {
	t.Parallel()

	specs := Parse("## X\n+   \n- dropped\n+ real one\n")
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d (%+v)", len(specs), specs)
	}
	if specs[0].Include != "real one" || len(specs[0].QueryExclude) != 0 {
		t.Fatalf("unexpected surviving spec: %+v", specs[0])
	}
}

func TestParseCollapsesWhitespaceAndHeaders(t *testing.T) {
	t.Parallel()

	specs := Parse("##   Big   Tech  \n+   open   ai  \n### not a bundle\n")
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if specs[0].Bundle != "Big Tech" || specs[0].Include != "open ai" {
		t.Fatalf("unexpected spec: %+v", specs[0])
	}
}

func TestParseEmptyAndMalformedInput(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{"", "   \n\n", "just prose\nno markers", "##\n+ nothing"} {
		if specs := Parse(doc); len(specs) != 0 {
			t.Fatalf("expected no specs for %q, got %+v", doc, specs)
		}
	}
}

func TestParseKeepsQueriesAfterVeryLongLine(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 2<<20)
	doc := "## T\r\n+ first\r\n- " + long + "\r\n+ second\r\n"
	specs := Parse(doc)
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[1].Include != "second" {
		t.Fatalf("expected second query after long line, got %q", specs[1].Include)
	}
	if len(specs[0].QueryExclude) != 1 || len(specs[0].QueryExclude[0]) != len(long) {
		t.Fatalf("expected long exclusion kept on first query")
	}
}

func TestParseRequired(t *testing.T) {
	t.Parallel()

	if _, err := ParseRequired("nothing here"); !errors.Is(err, ErrNoQueries) {
		t.Fatalf("expected ErrNoQueries, got %v", err)
	}
	specs, err := ParseRequired("## A\n+ q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
}

func TestCountBundles(t *testing.T) {
	t.Parallel()

	specs := Parse("## A\n+ one\n+ two\n## B\n+ three\n## A\n+ four\n")
	if got := CountBundles(specs); got != 2 {
		t.Fatalf("expected 2 distinct bundles, got %d", got)
	}
}
