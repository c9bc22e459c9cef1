package services

import "testing"

func TestCalculateXP(t *testing.T) {
	cases := []struct {
		name      string
		minutes   float64
		sentiment int
		improved  bool
		want      int64
	}{
		{"neutral", 20, 3, false, 20},
		{"great session", 20, 5, false, 30},
		{"good session", 10, 4, false, 13},
		{"meh session", 10, 2, false, 8},
		{"bad session", 10, 1, false, 6},
		{"improvement bonus", 20, 3, true, 25},
		{"great with improvement", 40, 5, true, 75},
		{"rounds half up", 1, 5, false, 2},
		{"sentiment above range is neutral", 20, 9, false, 20},
		{"sentiment zero is neutral", 20, 0, false, 20},
		{"negative sentiment is neutral", 20, -3, false, 20},
		{"tiny session floors to one", 0.2, 1, false, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateXP(tc.minutes, tc.sentiment, tc.improved)
			if got != tc.want {
				t.Fatalf("CalculateXP(%v, %d, %v) = %d, want %d", tc.minutes, tc.sentiment, tc.improved, got, tc.want)
			}
		})
	}
}

func TestCalculateXPNeverBelowOne(t *testing.T) {
	for _, minutes := range []float64{0.01, 0.1, 0.5, 0.8, 1, 2.5, 90} {
		for sentiment := -1; sentiment <= 6; sentiment++ {
			for _, improved := range []bool{false, true} {
				if got := CalculateXP(minutes, sentiment, improved); got < 1 {
					t.Fatalf("CalculateXP(%v, %d, %v) = %d, want >= 1", minutes, sentiment, improved, got)
				}
			}
		}
	}
}

func TestCalculateLevelFromXP(t *testing.T) {
	cases := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{10000, 11},
		{-50, 1},
	}
	for _, tc := range cases {
		if got := CalculateLevelFromXP(tc.xp); got != tc.want {
			t.Fatalf("CalculateLevelFromXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestCalculateLevelFromXPIsMonotonic(t *testing.T) {
	prev := CalculateLevelFromXP(0)
	for xp := int64(1); xp <= 50000; xp += 7 {
		lvl := CalculateLevelFromXP(xp)
		if lvl < prev {
			t.Fatalf("level dropped from %d to %d at xp=%d", prev, lvl, xp)
		}
		prev = lvl
	}
}

func TestXPForLevelMatchesLevelCurve(t *testing.T) {
	for level := 1; level <= 30; level++ {
		floor := XPForLevel(level)
		if got := CalculateLevelFromXP(floor); got != level {
			t.Fatalf("CalculateLevelFromXP(XPForLevel(%d)=%d) = %d", level, floor, got)
		}
		if level > 1 {
			if got := CalculateLevelFromXP(floor - 1); got != level-1 {
				t.Fatalf("CalculateLevelFromXP(%d) = %d, want %d", floor-1, got, level-1)
			}
		}
	}
}
