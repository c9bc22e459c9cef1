package services

import "math"

// XPPerLevelUnit scales the level curve: level = floor(sqrt(xp / XPPerLevelUnit)) + 1
const XPPerLevelUnit = 100

// ImprovementMultiplier applies when a session detected improvement
const ImprovementMultiplier = 1.25

// sentimentMultipliers maps a 1-5 sentiment score to an XP multiplier.
// Scores outside the table count as neutral.
var sentimentMultipliers = map[int]float64{
	5: 1.5,
	4: 1.3,
	3: 1.0,
	2: 0.8,
	1: 0.6,
}

func sentimentMultiplier(score int) float64 {
	if m, ok := sentimentMultipliers[score]; ok {
		return m
	}
	return 1.0
}

// CalculateXP returns the XP earned by one practice session, never less than 1.
func CalculateXP(durationMinutes float64, sentimentScore int, improvementDetected bool) int64 {
	improvement := 1.0
	if improvementDetected {
		improvement = ImprovementMultiplier
	}
	xp := int64(math.Round(durationMinutes * sentimentMultiplier(sentimentScore) * improvement))
	if xp < 1 {
		return 1
	}
	return xp
}

// CalculateLevelFromXP e.g. 0-99 XP → L1, 100-399 → L2, 400-899 → L3
func CalculateLevelFromXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(xp)/XPPerLevelUnit))) + 1
}

// XPForLevel is the total XP at which level starts
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return n * n * XPPerLevelUnit
}
