package problem

import (
	"github.com/cphub/cp-training-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE MODEL
// ══════════════════════════════════════════════════════════════════════════════

const (
	// sweetSpotWidth is the width of the band at and above the subject's
	// level, where problems train the most.
	sweetSpotWidth = 1.5

	// belowWidth is the width of the bands below the subject's level.
	belowWidth = 1.0

	maxDifficulty = float64(skill.MaxLevel)
)

// band is one difficulty interval [Lo, Hi) with a distance rank from the
// sweet spot.
type band struct {
	Lo    float64
	Hi    float64
	Depth int
}

// CategoryLevel is the input of a per-category relevance computation: the
// subject's current level in one category the problem belongs to.
type CategoryLevel struct {
	CategoryID string
	Level      float64
}

// ScoreModel ranks how relevant an unsolved problem is for a subject on a
// 0-100 scale. The sweet spot sits at the subject's level in each of the
// problem's categories; relevance decays in bands the further the difficulty
// is from that spot.
type ScoreModel struct{}

// NewScoreModel creates a ScoreModel.
func NewScoreModel() *ScoreModel {
	return &ScoreModel{}
}

// buildBands lays out the difficulty bands around a category level. The
// first band is the sweet spot [L, L+1.5); then bands alternate one step
// below (width 1, down to 0) and one step above (width 1.5, allowed to grow
// past 10 so the top difficulty always lands in some band).
func buildBands(level float64) []band {
	if level < 0 {
		level = 0
	}
	if level > maxDifficulty {
		level = maxDifficulty
	}

	bands := make([]band, 0, 12)
	bands = append(bands, band{Lo: level, Hi: level + sweetSpotWidth})

	below := level
	above := level + sweetSpotWidth
	depth := 1
	for below > skill.Eps() || above < maxDifficulty {
		if below > skill.Eps() {
			lo := below - belowWidth
			if lo < 0 {
				lo = 0
			}
			bands = append(bands, band{Lo: lo, Hi: below, Depth: depth})
			below = lo
			depth++
		}
		if above < maxDifficulty {
			bands = append(bands, band{Lo: above, Hi: above + sweetSpotWidth, Depth: depth})
			above += sweetSpotWidth
			depth++
		}
	}
	return bands
}

// locate returns the band containing the difficulty: the first band with
// lo <= d < hi. The topmost band also claims d == its upper bound so the
// maximum difficulty is never bandless.
func locate(bands []band, difficulty float64) band {
	top := bands[0]
	for _, b := range bands {
		if difficulty >= b.Lo && difficulty < b.Hi {
			return b
		}
		if b.Hi > top.Hi {
			top = b
		}
	}
	return top
}

// categoryScore computes the relevance of a difficulty against one category
// level. Within a band the score interpolates direction-aware: for problems
// harder than the level the relevance falls from the band's high bound at the
// near edge toward the low bound at the far edge; for easier-or-equal
// problems it rises from the low bound. A difficulty exactly at the level
// therefore scores the sweet-spot band's low bound.
func (m *ScoreModel) categoryScore(difficulty, level float64) float64 {
	b := locate(buildBands(level), difficulty)
	low, high := skill.RelevanceBand(b.Depth)

	width := b.Hi - b.Lo
	if width <= skill.Eps() {
		return low
	}
	frac := (difficulty - b.Lo) / width
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	if difficulty > level+skill.Eps() {
		return high - frac*(high-low)
	}
	return low + frac*(high-low)
}

// Score computes the relevance of a problem for a subject: the average of
// the per-category relevance across the problem's categories, clamped to
// [0, 100]. Difficulties outside [0, 10] are clamped at the boundary.
//
// A problem with no category links falls back to a difficulty-only score
// against the subject's overall level: (10 - level) * 10.
func (m *ScoreModel) Score(difficulty float64, levels []CategoryLevel, overallLevel float64) float64 {
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > maxDifficulty {
		difficulty = maxDifficulty
	}

	if len(levels) == 0 {
		return clampScore((maxDifficulty - overallLevel) * 10)
	}

	var sum float64
	for _, cl := range levels {
		sum += m.categoryScore(difficulty, cl.Level)
	}
	return clampScore(sum / float64(len(levels)))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
