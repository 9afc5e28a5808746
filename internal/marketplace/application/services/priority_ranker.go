package services

import (
	"sort"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/google/uuid"
)

// RankedProject pairs a project with its computed priority.
type RankedProject struct {
	Project  *domain.Project `json:"project"`
	Priority PriorityResult  `json:"priority"`
}

// PriorityRanker orders projects by score for a viewer.
type PriorityRanker struct {
	scorer *PriorityScorer
}

// NewPriorityRanker creates a ranker. A nil scorer uses the defaults.
func NewPriorityRanker(scorer *PriorityScorer) *PriorityRanker {
	if scorer == nil {
		scorer = NewPriorityScorer()
	}
	return &PriorityRanker{scorer: scorer}
}

// Scorer returns the scorer backing this ranker.
func (r *PriorityRanker) Scorer() *PriorityScorer {
	return r.scorer
}

// TopTask returns the highest scoring actionable project, or nil.
// Completed projects are skipped unless they still need an evaluation.
func (r *PriorityRanker) TopTask(projects []*domain.Project, role domain.Role, viewerID uuid.UUID) *RankedProject {
	ranked := r.rank(projects, role, viewerID, true)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

// RankAll scores every project and returns them by descending score.
// Equal scores keep their input order.
func (r *PriorityRanker) RankAll(projects []*domain.Project, role domain.Role, viewerID uuid.UUID) []RankedProject {
	return r.rank(projects, role, viewerID, false)
}

func (r *PriorityRanker) rank(projects []*domain.Project, role domain.Role, viewerID uuid.UUID, actionableOnly bool) []RankedProject {
	ranked := make([]RankedProject, 0, len(projects))
	for _, p := range projects {
		if p == nil {
			continue
		}
		if actionableOnly && !p.IsActionable() {
			continue
		}
		ranked = append(ranked, RankedProject{
			Project:  p,
			Priority: r.scorer.Score(p, role, viewerID),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority.Score > ranked[j].Priority.Score
	})
	return ranked
}
