package domain

// RankTier is one rung of the points ladder.
type RankTier struct {
	Name      string
	MinPoints int
}

// DefaultRankLadder mirrors the community's ranking roles, ordered by
// ascending points requirement.
var DefaultRankLadder = []RankTier{
	{Name: "QA Pleasant", MinPoints: 0},
	{Name: "QA Baron", MinPoints: 100},
	{Name: "QA Viscount", MinPoints: 300},
	{Name: "QA Marquis", MinPoints: 600},
	{Name: "QA Earl", MinPoints: 1000},
	{Name: "Quiz Duke", MinPoints: 2000},
	{Name: "QA Grand Duke", MinPoints: 5000},
}

// RankForPoints returns the highest tier whose threshold the points meet.
func RankForPoints(ladder []RankTier, points int) string {
	if len(ladder) == 0 {
		ladder = DefaultRankLadder
	}
	name := ladder[0].Name
	for _, tier := range ladder {
		if points >= tier.MinPoints {
			name = tier.Name
		}
	}
	return name
}

// NextRank returns the next tier above the given points and how many points
// remain to reach it. ok is false when the top tier is already held.
func NextRank(ladder []RankTier, points int) (tier RankTier, remaining int, ok bool) {
	if len(ladder) == 0 {
		ladder = DefaultRankLadder
	}
	for _, t := range ladder {
		if points < t.MinPoints {
			return t, t.MinPoints - points, true
		}
	}
	return RankTier{}, 0, false
}
