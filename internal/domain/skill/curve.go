// Package skill contains the static skill curve: the piecewise tables that map
// a raw skill value to a discrete level, a title, a color, and a weekly score
// target. Pure functions over constant tables - no state, no external
// dependencies.
package skill

import (
	"fmt"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MaxLevel is the highest reachable skill level.
	MaxLevel = 10

	// levelCount is the number of level bands (0..MaxLevel inclusive).
	levelCount = MaxLevel + 1

	// relevanceBandCount is the number of relevance band entries.
	relevanceBandCount = 15

	// maxSkillSentinel bounds the final threshold band. Any skill value in
	// [thresholds[10], sentinel) interpolates inside the last band and the
	// result is clamped to MaxLevel.
	maxSkillSentinel = 10_000_000.0

	// eps guards band boundaries against floating-point drift.
	eps = 1e-9
)

// ══════════════════════════════════════════════════════════════════════════════
// TABLES
// ══════════════════════════════════════════════════════════════════════════════

// Table bundles the constant per-deployment skill tables. Two deployments use
// differently scaled thresholds; which one is active is a configuration choice,
// never a code branch.
type Table struct {
	// Name identifies the table ("classic", "scaled").
	Name string

	// Thresholds holds the minimum skill value of each level band.
	// Strictly increasing, Thresholds[0] == 0.
	Thresholds [levelCount]float64

	// Titles holds the title shown for each integer level band.
	Titles [levelCount]string

	// Colors holds the hex color code for each integer level band.
	Colors [levelCount]string

	// BaseScores holds the skill score one problem of integer difficulty d
	// is worth before grouping discounts. Index 0 is unused.
	BaseScores [levelCount]float64

	// WeeklyTargets holds the weekly minimum score anchor per integer level,
	// used to derive the next-period target.
	WeeklyTargets [levelCount]float64
}

// ClassicTable is the original deployment table: thresholds start low and grow
// to one million at the top band.
var ClassicTable = Table{
	Name:          "classic",
	Thresholds:    [levelCount]float64{0, 50, 150, 400, 900, 2000, 4500, 10000, 40000, 150000, 1000000},
	Titles:        [levelCount]string{"Newbie", "Beginner", "Amateur", "Pupil", "Specialist", "Expert", "Candidate Master", "Master", "Grandmaster", "Legend", "Immortal"},
	Colors:        [levelCount]string{"#9e9e9e", "#8bc34a", "#4caf50", "#00bcd4", "#2196f3", "#9c27b0", "#ff9800", "#ff5722", "#f44336", "#b71c1c", "#000000"},
	BaseScores:    [levelCount]float64{0, 4, 10, 18, 28, 40, 54, 70, 88, 108, 130},
	WeeklyTargets: [levelCount]float64{10, 15, 22, 30, 40, 52, 66, 82, 100, 120, 142},
}

// ScaledTable is the compact deployment table with thresholds in 0-3500.
var ScaledTable = Table{
	Name:          "scaled",
	Thresholds:    [levelCount]float64{0, 100, 300, 600, 1000, 1400, 1800, 2200, 2600, 3000, 3500},
	Titles:        ClassicTable.Titles,
	Colors:        ClassicTable.Colors,
	BaseScores:    ClassicTable.BaseScores,
	WeeklyTargets: ClassicTable.WeeklyTargets,
}

// relevanceBands maps a band depth (distance rank from the sweet-spot band
// around the subject's level) to a [low, high] relevance score range. The
// entries tile downward from the maximum relevance without gaps.
var relevanceBands = [relevanceBandCount][2]float64{
	{85, 100},
	{70, 85},
	{55, 70},
	{42, 55},
	{30, 42},
	{21, 30},
	{14, 21},
	{9, 14},
	{5, 9},
	{3, 5},
	{2, 3},
	{1.5, 2},
	{1, 1.5},
	{0.5, 1},
	{0, 0.5},
}

// TableByName returns a predefined table by its configured name.
func TableByName(name string) (Table, error) {
	switch name {
	case ClassicTable.Name, "":
		return ClassicTable, nil
	case ScaledTable.Name:
		return ScaledTable, nil
	default:
		return Table{}, fmt.Errorf("skill: unknown table %q", name)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CURVE
// ══════════════════════════════════════════════════════════════════════════════

// Curve answers level/title/target questions for one deployment table.
// A Curve is immutable and safe for concurrent use.
type Curve struct {
	table Table
}

// NewCurve creates a Curve over the given table.
func NewCurve(table Table) *Curve {
	return &Curve{table: table}
}

// Default returns the curve over the classic table.
func Default() *Curve {
	return NewCurve(ClassicTable)
}

// Table returns the underlying table.
func (c *Curve) Table() Table {
	return c.table
}

// bandIndex returns the highest threshold index i such that value >= t[i].
func (c *Curve) bandIndex(value float64) int {
	if value <= 0 {
		return 0
	}
	idx := 0
	for i := 0; i < levelCount; i++ {
		if value >= c.table.Thresholds[i] {
			idx = i
		}
	}
	return idx
}

// LevelFor converts a raw skill value into a fractional level in [0, MaxLevel].
// Within a band the level interpolates linearly; the final band extends toward
// the sentinel and saturates at MaxLevel.
func (c *Curve) LevelFor(value float64) float64 {
	if value <= 0 {
		return 0
	}

	i := c.bandIndex(value)
	lo := c.table.Thresholds[i]
	hi := maxSkillSentinel
	if i < levelCount-1 {
		hi = c.table.Thresholds[i+1]
	}

	level := float64(i) + (value-lo)/(hi-lo)
	if level > MaxLevel {
		level = MaxLevel
	}
	if level < 0 {
		level = 0
	}
	return level
}

// TitleFor returns the discrete title of the band containing the skill value.
func (c *Curve) TitleFor(value float64) string {
	return c.table.Titles[c.bandIndex(value)]
}

// ColorFor returns the color code of the band containing the skill value.
func (c *Curve) ColorFor(value float64) string {
	return c.table.Colors[c.bandIndex(value)]
}

// BaseScore returns the base skill score for one solved problem of the given
// integer difficulty. Out-of-range difficulties are clamped, never rejected:
// upstream data entry is not guaranteed clean.
func (c *Curve) BaseScore(difficulty int) float64 {
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > MaxLevel {
		difficulty = MaxLevel
	}
	return c.table.BaseScores[difficulty]
}

// NextPeriodTarget returns the weekly minimum score target for a fractional
// level: a linear interpolation between the anchors at floor(level) and
// floor(level)+1 weighted by the fractional part.
func (c *Curve) NextPeriodTarget(level float64) float64 {
	if level <= 0 {
		return c.table.WeeklyTargets[0]
	}
	if level >= MaxLevel {
		return c.table.WeeklyTargets[MaxLevel]
	}

	li := int(math.Floor(level))
	frac := level - float64(li)
	return c.table.WeeklyTargets[li] + frac*(c.table.WeeklyTargets[li+1]-c.table.WeeklyTargets[li])
}

// RelevanceBand returns the [low, high] relevance score range for a band
// depth. Depths beyond the table fall back to the degenerate [0, 1] band -
// that is an explicit last-resort policy, not an error.
func RelevanceBand(depth int) (low, high float64) {
	if depth < 0 || depth >= relevanceBandCount {
		return 0, 1
	}
	return relevanceBands[depth][0], relevanceBands[depth][1]
}

// RelevanceBandCount returns the number of defined relevance bands.
func RelevanceBandCount() int {
	return relevanceBandCount
}

// Eps returns the boundary guard used by banding arithmetic.
func Eps() float64 {
	return eps
}
