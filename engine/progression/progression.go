// Package progression holds the experience table and the prestige rules
// shared by every player store.
package progression

import "math"

// ExpLevels[i] is the experience needed to reach level i+1.
var ExpLevels = []int{
	0, 3, 7, 12, 18, 25, 33, 42, 52, 63,
	75, 88, 102, 117, 133, 150, 168, 187, 207, 228,
	250, 273, 297, 322, 348, 375, 403, 432, 462, 493,
}

const (
	// LevelCap is the highest reachable level.
	LevelCap = 30
	// PrestigeGold is the gold spent to prestige.
	PrestigeGold = 30000
	// PrestigeBonus is the gold reward amplification per prestige.
	PrestigeBonus = 0.05
)

// Level returns the level for an experience total.
func Level(exp int) int {
	for i, need := range ExpLevels {
		if exp < need {
			return i
		}
	}
	return LevelCap
}

// PrestigeExp is the experience consumed by a prestige.
func PrestigeExp() int {
	return ExpLevels[LevelCap-1]
}

// CanPrestige reports whether a player with exp and gold may prestige.
func CanPrestige(exp, gold int) bool {
	return exp >= PrestigeExp() && gold >= PrestigeGold
}

// AmplifyGold scales positive gold rewards by the prestige bonus.
// Penalties are never scaled.
func AmplifyGold(gold, prestige int) int {
	if gold <= 0 || prestige <= 0 {
		return gold
	}
	return int(math.Round(float64(gold) * (1 + float64(prestige)*PrestigeBonus)))
}

// ClampGold floors a balance at zero.
func ClampGold(gold int) int {
	if gold < 0 {
		return 0
	}
	return gold
}
