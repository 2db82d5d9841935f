package bundle

import "strings"

// Compile renders spec as a single query string: the include text followed by every
// bundle exclusion and then every query exclusion, each negated once.
func Compile(spec QuerySpec) string {
	parts := make([]string, 0, 1+len(spec.BundleExclude)+len(spec.QueryExclude))
	parts = append(parts, spec.Include)
	for _, term := range spec.BundleExclude {
		parts = append(parts, negate(term))
	}
	for _, term := range spec.QueryExclude {
		parts = append(parts, negate(term))
	}
	return collapseSpace(strings.Join(parts, " "))
}

// Compiled pairs a spec with its rendered query string.
type Compiled struct {
	Spec  QuerySpec
	Query string
}

// CompileAll compiles specs in order.
func CompileAll(specs []QuerySpec) []Compiled {
	out := make([]Compiled, 0, len(specs))
	for _, spec := range specs {
		out = append(out, Compiled{Spec: spec, Query: Compile(spec)})
	}
	return out
}

func negate(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}
	if strings.HasPrefix(term, negationPrefix) {
		return term
	}
	return negationPrefix + term
}
