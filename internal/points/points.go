// Package points implements the reward ledger: credits, rework penalties and levels.
package points

import "math"

const (
	// PointsPerLevel is the size of one level tier.
	PointsPerLevel = 1000
	// ReworkRetention is the share of reward points kept after a rework penalty.
	ReworkRetention = 0.8
)

// LevelFor derives the level from cumulative points.
func LevelFor(points int) int {
	if points <= 0 {
		return 1
	}
	return (points-1)/PointsPerLevel + 1
}

// Penalize returns the reward left after one rework penalty, rounded half away from zero.
func Penalize(reward int) int {
	if reward <= 0 {
		return 0
	}
	return int(math.Round(float64(reward) * ReworkRetention))
}

// DefaultRate is the monetary rate of one point at level when no rate row exists.
func DefaultRate(level int) float64 {
	if level < 1 {
		level = 1
	}
	return math.Round(float64(level)*10) / 100
}
