package models

// Rank is the letter grade derived from a total score
type Rank string

const (
	RankUnset Rank = ""
	RankA     Rank = "A" // 90 and above
	RankB     Rank = "B" // 75 and above
	RankC     Rank = "C" // 55 and above
	RankD     Rank = "D" // 35 and above
	RankE     Rank = "E"
)

// RankForScore maps a total score (0..100) onto the rank table
func RankForScore(totalScore int) Rank {
	switch {
	case totalScore >= 90:
		return RankA
	case totalScore >= 75:
		return RankB
	case totalScore >= 55:
		return RankC
	case totalScore >= 35:
		return RankD
	default:
		return RankE
	}
}

// String implements fmt.Stringer for logging
func (r Rank) String() string {
	if r == "" {
		return "unset"
	}
	return string(r)
}

// IsValid returns true if the rank is one of A..E
func (r Rank) IsValid() bool {
	switch r {
	case RankA, RankB, RankC, RankD, RankE:
		return true
	}
	return false
}
