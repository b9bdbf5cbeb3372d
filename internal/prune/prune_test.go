package prune

import (
	"testing"

	"dupecull/internal/config"
)

func candidate(name string, size int64) Candidate {
	return Candidate{URI: "file:///library/" + name, Name: name, Size: size}
}

func uris(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Name
	}
	return out
}

func TestVersionRuleKeepsHighestVersion(t *testing.T) {
	group := []Candidate{
		candidate("book v1.zip", 100),
		candidate("book v2.zip", 100),
		candidate("book.zip", 100),
	}
	removals := VersionRule{}.Evaluate(group)
	if len(removals) != 2 {
		t.Fatalf("expected 2 removals, got %+v", removals)
	}
	for _, removal := range removals {
		if removal.Candidate.Name == "book v2.zip" {
			t.Fatal("highest version must be kept")
		}
		if removal.Reason != ReasonVersion {
			t.Fatalf("wrong reason: %s", removal.Reason)
		}
	}
}

func TestVersionRuleNoopWithoutSecondVersion(t *testing.T) {
	group := []Candidate{
		candidate("book.zip", 100),
		candidate("book v1.zip", 100),
	}
	if removals := (VersionRule{}).Evaluate(group); len(removals) != 0 {
		t.Fatalf("nothing above v1, expected no removals: %+v", removals)
	}
}

func TestVersionRuleTieBreaksOnSizeThenPath(t *testing.T) {
	group := []Candidate{
		candidate("book v2.zip", 100),
		{URI: "file:///other/book v2.zip", Name: "book v2.zip", Size: 200},
	}
	removals := VersionRule{}.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.Size != 100 {
		t.Fatalf("larger file should win the tie: %+v", removals)
	}

	equalSize := []Candidate{
		{URI: "file:///b/book v2.zip", Name: "book v2.zip", Size: 100},
		{URI: "file:///a/book v2.zip", Name: "book v2.zip", Size: 100},
	}
	removals = VersionRule{}.Evaluate(equalSize)
	if len(removals) != 1 || removals[0].Candidate.URI != "file:///b/book v2.zip" {
		t.Fatalf("lexicographically smaller path should win: %+v", removals)
	}
}

func TestVersionRuleIsCaseInsensitive(t *testing.T) {
	group := []Candidate{
		candidate("Book V2.zip", 100),
		candidate("book.zip", 100),
	}
	removals := VersionRule{}.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.Name != "book.zip" {
		t.Fatalf("case-folded stems should bucket together: %+v", removals)
	}
}

func TestKeywordRulePrefersMatching(t *testing.T) {
	rule := KeywordRule{Keywords: []string{"uncensored"}, Scope: ScopeName, KeepMatching: true}
	group := []Candidate{
		candidate("album [Uncensored].zip", 100),
		candidate("album.zip", 100),
	}
	removals := rule.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.Name != "album.zip" {
		t.Fatalf("non-matching candidate should go: %+v", removals)
	}
}

func TestKeywordRulePreferSkipsWhenOneSided(t *testing.T) {
	rule := KeywordRule{Keywords: []string{"uncensored"}, Scope: ScopeName, KeepMatching: true}

	allMatch := []Candidate{
		candidate("a uncensored.zip", 1),
		candidate("b uncensored.zip", 1),
	}
	if removals := rule.Evaluate(allMatch); len(removals) != 0 {
		t.Fatalf("all matching: expected no removals, got %+v", removals)
	}

	noneMatch := []Candidate{candidate("a.zip", 1), candidate("b.zip", 1)}
	if removals := rule.Evaluate(noneMatch); len(removals) != 0 {
		t.Fatalf("none matching: expected no removals, got %+v", removals)
	}
}

func TestKeywordRuleDiscardsMatching(t *testing.T) {
	rule := KeywordRule{Keywords: []string{"sample"}, Scope: ScopeName}
	group := []Candidate{
		candidate("album SAMPLE.zip", 100),
		candidate("album.zip", 100),
	}
	removals := rule.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.Name != "album SAMPLE.zip" {
		t.Fatalf("matching candidate should go: %+v", removals)
	}
}

func TestDimensionRuleKeepsLargestArea(t *testing.T) {
	group := []Candidate{
		{URI: "a", Name: "a.jpg", Width: 100, Height: 100},
		{URI: "b", Name: "b.jpg", Width: 200, Height: 200},
		{URI: "c", Name: "c.jpg"}, // unknown dimensions stay
	}
	removals := DimensionRule{}.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.URI != "a" {
		t.Fatalf("smaller image should go, unknown stays: %+v", removals)
	}
}

func TestSizeRuleDirection(t *testing.T) {
	group := []Candidate{candidate("a.zip", 100), candidate("b.zip", 200)}

	removals := SizeRule{}.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.Name != "a.zip" {
		t.Fatalf("keep-largest should drop the smaller: %+v", removals)
	}

	removals = SizeRule{KeepSmallest: true}.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.Name != "b.zip" {
		t.Fatalf("keep-smallest should drop the larger: %+v", removals)
	}
}

func TestFilenameRuleKeepsFirst(t *testing.T) {
	group := []Candidate{candidate("beta.zip", 1), candidate("Alpha.zip", 1)}
	removals := FilenameRule{}.Evaluate(group)
	if len(removals) != 1 || removals[0].Candidate.Name != "beta.zip" {
		t.Fatalf("folded name order should keep Alpha.zip: %+v", removals)
	}
}

func TestPruneMinKeepSkipsWholeRule(t *testing.T) {
	group := []Candidate{
		candidate("album SAMPLE.zip", 100),
		candidate("album extra SAMPLE.zip", 100),
	}
	rules := []Rule{KeywordRule{Keywords: []string{"sample"}, Scope: ScopeName}}

	kept, removals := Prune(group, rules, 1)
	if len(kept) != 2 || len(removals) != 0 {
		t.Fatalf("rule removing everything must be skipped whole: kept=%v removals=%v",
			uris(kept), removals)
	}
}

func TestPruneRulesRunInOrder(t *testing.T) {
	group := []Candidate{
		candidate("book v1.zip", 300),
		candidate("book v2.zip", 100),
		candidate("other.zip", 200),
	}
	rules := []Rule{VersionRule{}, SizeRule{KeepSmallest: true}}

	kept, removals := Prune(group, rules, 1)
	// Version rule removes v1; size rule then drops other.zip (200 > 100).
	if len(kept) != 1 || kept[0].Name != "book v2.zip" {
		t.Fatalf("unexpected survivors: %v", uris(kept))
	}
	if len(removals) != 2 {
		t.Fatalf("expected 2 removals, got %+v", removals)
	}
	if removals[0].Reason != ReasonVersion || removals[1].Reason != ReasonSize {
		t.Fatalf("rule order not reflected in reasons: %+v", removals)
	}
}

func TestPruneEmptyGroup(t *testing.T) {
	kept, removals := Prune(nil, []Rule{VersionRule{}}, 1)
	if len(kept) != 0 || len(removals) != 0 {
		t.Fatalf("empty group must be a no-op: kept=%v removals=%v", kept, removals)
	}
}

func TestFromConfigChain(t *testing.T) {
	rules := FromConfig(config.Pruning{
		VersionRule:     true,
		PreferKeywords:  []string{"uncensored"},
		DiscardKeywords: []string{"sample"},
		PreferSmallest:  true,
	})
	if len(rules) != 4 {
		t.Fatalf("expected 4 rules, got %d", len(rules))
	}
	if rules[0].Name() != "version" || rules[3].Name() != "size" {
		t.Fatalf("unexpected chain: %v", []string{rules[0].Name(), rules[3].Name()})
	}
}
