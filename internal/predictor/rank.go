package predictor

import (
	"fmt"
	"math"
	"slices"

	"github.com/yildizm/recsvd/internal/dataset"
)

// Recommendation is one ranked item
type Recommendation struct {
	ItemID string  `json:"item_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// Result is a ranked recommendation list, highest score first
type Result struct {
	UserID          string           `json:"user"`
	Recommendations []Recommendation `json:"recommendations"`
	Eligible        int              `json:"eligible"`
	Excluded        int              `json:"excluded"`
}

type candidate struct {
	id    string
	score float64
}

// Rank drops the items the user already consumed (value > 0), sorts the rest
// by score and returns the first topN with their catalog names. Ties keep
// item order and NaN scores sort last.
func (p *Predictor) Rank(vector dataset.InteractionVector, row *ScoredRow, catalog dataset.Catalog, topN int) (*Result, error) {
	const op = "rank"
	features := p.Features()
	if features == 0 {
		return nil, p.fail(newError(ErrTypeNotLoaded, op, "model must be loaded first", nil), vector.UserID)
	}
	if vector.Len() != features {
		return nil, p.fail(newError(ErrTypeShape, op,
			fmt.Sprintf("vector has %d items, model expects %d", vector.Len(), features), nil), vector.UserID)
	}
	if row == nil {
		return nil, p.fail(newError(ErrTypeState, op, "to_scored_row must run before rank", nil), vector.UserID)
	}
	if row.UserID != vector.UserID {
		return nil, p.fail(newError(ErrTypeState, op,
			fmt.Sprintf("scored row belongs to user %s, not %s", row.UserID, vector.UserID), nil), vector.UserID)
	}
	if len(catalog) == 0 {
		return nil, p.fail(newError(ErrTypeEmptyCatalog, op, "product catalog must not be empty", nil), vector.UserID)
	}
	if topN < 1 {
		return nil, p.fail(newError(ErrTypeInvalidCount, op,
			fmt.Sprintf("top_n must be at least 1, got %d", topN), nil), vector.UserID)
	}

	consumed := vector.Consumed()
	candidates := make([]candidate, 0, len(row.Items))
	for i, id := range row.Items {
		if consumed[id] || i >= len(row.Scores) {
			continue
		}
		candidates = append(candidates, candidate{id: id, score: row.Scores[i]})
	}

	slices.SortStableFunc(candidates, compareCandidates)

	n := min(topN, len(candidates))
	result := &Result{
		UserID:          vector.UserID,
		Recommendations: make([]Recommendation, 0, n),
		Eligible:        len(candidates),
		Excluded:        len(row.Items) - len(candidates),
	}
	for _, c := range candidates[:n] {
		result.Recommendations = append(result.Recommendations, Recommendation{
			ItemID: c.id,
			Name:   catalog.Name(c.id),
			Score:  c.score,
		})
	}

	p.log.Debug("Ranked %d of %d eligible items for user %s", n, len(candidates), vector.UserID)
	return result, nil
}

// compareCandidates orders by descending score with NaN last
func compareCandidates(a, b candidate) int {
	aNaN, bNaN := math.IsNaN(a.score), math.IsNaN(b.score)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a.score > b.score:
		return -1
	case a.score < b.score:
		return 1
	default:
		return 0
	}
}
