package generator

import (
	"fmt"
	"regexp"

	"github.com/blimu-dev/schema-gen/pkg/config"
	"github.com/blimu-dev/schema-gen/pkg/goindex"
	"github.com/blimu-dev/schema-gen/pkg/types"
)

// selectRoots returns the explicit roots of output followed by every indexed
// type matching its filters, without duplicates.
func selectRoots(index *goindex.Index, output config.Output) ([]*types.Type, error) {
	var roots []*types.Type
	seen := map[string]bool{}

	for _, name := range output.Roots {
		class, err := index.Lookup(name)
		if err != nil {
			return nil, err
		}
		if class.TypeParameters() != nil {
			return nil, fmt.Errorf("root %s is generic and needs type arguments", name)
		}
		if !seen[class.Name()] {
			seen[class.Name()] = true
			roots = append(roots, class.Type)
		}
	}

	if len(output.IncludeTypes) == 0 {
		return roots, nil
	}
	include, exclude, err := compileTypeFilters(output.IncludeTypes, output.ExcludeTypes)
	if err != nil {
		return nil, err
	}
	for _, name := range index.Names() {
		if seen[name] || !shouldIncludeType(name, include, exclude) {
			continue
		}
		class := index.Classes()[name]
		if class.TypeParameters() != nil {
			continue
		}
		seen[name] = true
		roots = append(roots, class.Type)
	}
	return roots, nil
}

// compileTypeFilters compiles regex patterns for type filtering
func compileTypeFilters(include, exclude []string) ([]*regexp.Regexp, []*regexp.Regexp, error) {
	inc := make([]*regexp.Regexp, 0, len(include))
	for _, p := range include {
		r, err := regexp.Compile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid includeTypes pattern %q: %w", p, err)
		}
		inc = append(inc, r)
	}
	exc := make([]*regexp.Regexp, 0, len(exclude))
	for _, p := range exclude {
		r, err := regexp.Compile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid excludeTypes pattern %q: %w", p, err)
		}
		exc = append(exc, r)
	}
	return inc, exc, nil
}

// shouldIncludeType determines if a qualified type name passes the filters
func shouldIncludeType(name string, include, exclude []*regexp.Regexp) bool {
	// If no include patterns, assume all types are initially included
	included := len(include) == 0

	for _, r := range include {
		if r.MatchString(name) {
			included = true
			break
		}
	}

	// If not included by include patterns, exclude it
	if !included {
		return false
	}

	// Exclude takes precedence over include
	for _, r := range exclude {
		if r.MatchString(name) {
			return false
		}
	}

	return true
}
