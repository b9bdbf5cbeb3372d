package prune

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"dupecull/internal/config"
)

var foldCaser = cases.Fold()

// versionSuffix matches a trailing version marker such as "v2" on a file name
// stem, with an optional space, dot, dash or underscore separator.
var versionSuffix = regexp.MustCompile(`(?i)[ ._-]*v(\d+)$`)

// VersionRule collapses versioned siblings: candidates whose name stems differ
// only by a trailing "v<N>" marker form a bucket, and when the bucket's
// highest version is at least 2, every other bucket member is removed.
// Unversioned stems count as version 1. Ties on version keep the larger file,
// then the lexicographically smaller URI.
type VersionRule struct{}

func (VersionRule) Name() string { return "version" }

type versioned struct {
	candidate Candidate
	version   int
}

func (VersionRule) Evaluate(group []Candidate) []Removal {
	buckets := make(map[string][]versioned)
	var order []string
	for _, candidate := range group {
		base, version := splitVersion(candidate.Name)
		key := foldCaser.String(base)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], versioned{candidate: candidate, version: version})
	}

	var removals []Removal
	for _, key := range order {
		bucket := buckets[key]
		if len(bucket) < 2 {
			continue
		}
		winner := bucket[0]
		for _, entry := range bucket[1:] {
			if betterVersion(entry, winner) {
				winner = entry
			}
		}
		if winner.version < 2 {
			continue
		}
		for _, entry := range bucket {
			if entry.candidate.URI == winner.candidate.URI {
				continue
			}
			removals = append(removals, Removal{
				Candidate: entry.candidate,
				Reason:    ReasonVersion,
				Detail:    fmt.Sprintf("superseded by %s", winner.candidate.Name),
			})
		}
	}
	return removals
}

func betterVersion(a, b versioned) bool {
	if a.version != b.version {
		return a.version > b.version
	}
	if a.candidate.Size != b.candidate.Size {
		return a.candidate.Size > b.candidate.Size
	}
	return a.candidate.URI < b.candidate.URI
}

// splitVersion strips the extension and any trailing version marker from a
// file name, returning the remaining stem and the parsed version number
// (1 when unversioned).
func splitVersion(name string) (string, int) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	match := versionSuffix.FindStringSubmatch(stem)
	if match == nil {
		return strings.TrimSpace(stem), 1
	}
	version, err := strconv.Atoi(match[1])
	if err != nil || version < 1 {
		return strings.TrimSpace(stem), 1
	}
	return strings.TrimSpace(stem[:len(stem)-len(match[0])]), version
}

// KeywordScope selects the text a keyword rule inspects.
type KeywordScope int

const (
	// ScopeName matches against the candidate's base name.
	ScopeName KeywordScope = iota
	// ScopeURI matches against the full identifier text.
	ScopeURI
)

// KeywordRule removes candidates by case-folded substring match. With
// KeepMatching set, matching candidates are preferred and the non-matching
// rest is removed, but only when both kinds are present. Without it, matching
// candidates are removed outright.
type KeywordRule struct {
	Keywords     []string
	Scope        KeywordScope
	KeepMatching bool
}

func (r KeywordRule) Name() string { return "keyword" }

func (r KeywordRule) Evaluate(group []Candidate) []Removal {
	if len(r.Keywords) == 0 {
		return nil
	}
	matched := make([]bool, len(group))
	matchedKeyword := make([]string, len(group))
	anyMatch, anyMiss := false, false
	for i, candidate := range group {
		keyword, ok := r.match(candidate)
		matched[i] = ok
		matchedKeyword[i] = keyword
		if ok {
			anyMatch = true
		} else {
			anyMiss = true
		}
	}

	var removals []Removal
	switch {
	case r.KeepMatching:
		if !anyMatch || !anyMiss {
			return nil
		}
		for i, candidate := range group {
			if !matched[i] {
				removals = append(removals, Removal{
					Candidate: candidate,
					Reason:    ReasonKeyword,
					Detail:    fmt.Sprintf("lacks preferred keyword %q", strings.Join(r.Keywords, ", ")),
				})
			}
		}
	default:
		for i, candidate := range group {
			if matched[i] {
				removals = append(removals, Removal{
					Candidate: candidate,
					Reason:    ReasonKeyword,
					Detail:    fmt.Sprintf("matches discard keyword %q", matchedKeyword[i]),
				})
			}
		}
	}
	return removals
}

func (r KeywordRule) match(candidate Candidate) (string, bool) {
	text := candidate.Name
	if r.Scope == ScopeURI {
		text = candidate.URI
	}
	folded := foldCaser.String(text)
	for _, keyword := range r.Keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(folded, foldCaser.String(keyword)) {
			return keyword, true
		}
	}
	return "", false
}

// DimensionRule keeps the candidate with the largest (or smallest) pixel
// count and removes the strictly worse ones. Candidates tied with the best
// stay. Candidates with unknown dimensions are never removed by this rule.
type DimensionRule struct {
	KeepSmallest bool
}

func (r DimensionRule) Name() string { return "dimension" }

func (r DimensionRule) Evaluate(group []Candidate) []Removal {
	best, found := 0, false
	for _, candidate := range group {
		pixels := candidate.PixelCount()
		if pixels == 0 {
			continue
		}
		if !found || better(pixels, best, r.KeepSmallest) {
			best = pixels
			found = true
		}
	}
	if !found {
		return nil
	}
	var removals []Removal
	for _, candidate := range group {
		pixels := candidate.PixelCount()
		if pixels == 0 || pixels == best {
			continue
		}
		removals = append(removals, Removal{
			Candidate: candidate,
			Reason:    ReasonDimension,
			Detail:    fmt.Sprintf("%dx%d loses to best pixel count %d", candidate.Width, candidate.Height, best),
		})
	}
	return removals
}

// SizeRule keeps the candidate with the largest (or smallest) byte size.
type SizeRule struct {
	KeepSmallest bool
}

func (r SizeRule) Name() string { return "size" }

func (r SizeRule) Evaluate(group []Candidate) []Removal {
	best, found := int64(0), false
	for _, candidate := range group {
		if candidate.Size == 0 {
			continue
		}
		if !found || better64(candidate.Size, best, r.KeepSmallest) {
			best = candidate.Size
			found = true
		}
	}
	if !found {
		return nil
	}
	var removals []Removal
	for _, candidate := range group {
		if candidate.Size == 0 || candidate.Size == best {
			continue
		}
		removals = append(removals, Removal{
			Candidate: candidate,
			Reason:    ReasonSize,
			Detail:    fmt.Sprintf("%d bytes loses to best size %d", candidate.Size, best),
		})
	}
	return removals
}

// FilenameRule breaks remaining ties by folded name order, keeping the first
// (or last) candidate.
type FilenameRule struct {
	KeepLast bool
}

func (r FilenameRule) Name() string { return "filename" }

func (r FilenameRule) Evaluate(group []Candidate) []Removal {
	if len(group) < 2 {
		return nil
	}
	ordered := make([]Candidate, len(group))
	copy(ordered, group)
	sort.SliceStable(ordered, func(i, j int) bool {
		left, right := foldCaser.String(ordered[i].Name), foldCaser.String(ordered[j].Name)
		if left != right {
			return left < right
		}
		return ordered[i].URI < ordered[j].URI
	})
	winner := ordered[0]
	if r.KeepLast {
		winner = ordered[len(ordered)-1]
	}
	var removals []Removal
	for _, candidate := range group {
		if candidate.URI == winner.URI {
			continue
		}
		removals = append(removals, Removal{
			Candidate: candidate,
			Reason:    ReasonFilename,
			Detail:    fmt.Sprintf("name order keeps %s", winner.Name),
		})
	}
	return removals
}

func better(a, b int, smaller bool) bool {
	if smaller {
		return a < b
	}
	return a > b
}

func better64(a, b int64, smaller bool) bool {
	if smaller {
		return a < b
	}
	return a > b
}

// FromConfig assembles the standard rule chain: version collapsing, preferred
// keywords, discard keywords, then a byte-size tie break.
func FromConfig(cfg config.Pruning) []Rule {
	var rules []Rule
	if cfg.VersionRule {
		rules = append(rules, VersionRule{})
	}
	if len(cfg.PreferKeywords) > 0 {
		rules = append(rules, KeywordRule{Keywords: cfg.PreferKeywords, Scope: ScopeName, KeepMatching: true})
	}
	if len(cfg.DiscardKeywords) > 0 {
		rules = append(rules, KeywordRule{Keywords: cfg.DiscardKeywords, Scope: ScopeName})
	}
	rules = append(rules, SizeRule{KeepSmallest: cfg.PreferSmallest})
	return rules
}
