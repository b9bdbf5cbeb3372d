package prune

// Reason tags a removal decision for reporting and trash layout.
type Reason string

const (
	ReasonVersion       Reason = "version"
	ReasonKeyword       Reason = "keyword"
	ReasonDimension     Reason = "dimension"
	ReasonSize          Reason = "size"
	ReasonFilename      Reason = "filename"
	ReasonHashDuplicate Reason = "hash-duplicate"
	ReasonQuality       Reason = "quality"
)

// Candidate is one member of a near-duplicate group under consideration.
type Candidate struct {
	URI    string
	Name   string
	Size   int64
	Width  int
	Height int
}

// PixelCount returns the candidate's pixel area, zero when dimensions are
// unknown.
func (c Candidate) PixelCount() int {
	return c.Width * c.Height
}

// Removal records one removal decision together with its reason.
type Removal struct {
	Candidate Candidate
	Reason    Reason
	Detail    string
}

// Rule proposes removals from a group. Rules never mutate the group; the
// engine commits or skips their proposals.
type Rule interface {
	Name() string
	Evaluate(group []Candidate) []Removal
}

// Prune applies rules in order against the group. Each rule sees the
// candidates that survived the rules before it. A rule whose proposals would
// leave fewer than minKeep candidates is skipped entirely. An empty group is
// a no-op.
func Prune(group []Candidate, rules []Rule, minKeep int) ([]Candidate, []Removal) {
	if minKeep < 1 {
		minKeep = 1
	}
	kept := make([]Candidate, len(group))
	copy(kept, group)

	var removals []Removal
	for _, rule := range rules {
		if len(kept) == 0 {
			break
		}
		proposals := rule.Evaluate(kept)
		if len(proposals) == 0 {
			continue
		}
		if len(kept)-len(proposals) < minKeep {
			continue
		}
		removed := make(map[string]struct{}, len(proposals))
		for _, proposal := range proposals {
			removed[proposal.Candidate.URI] = struct{}{}
		}
		next := kept[:0]
		for _, candidate := range kept {
			if _, gone := removed[candidate.URI]; !gone {
				next = append(next, candidate)
			}
		}
		kept = next
		removals = append(removals, proposals...)
	}
	return kept, removals
}
