package cache

import "fmt"

// Cache key layout. Everything lives under the codearena: prefix so a
// shared Redis can be swept with DelPattern("codearena:*").
func ProblemKey(id int) string {
	return fmt.Sprintf("codearena:problem:%d", id)
}

func ContestLeaderboardKey(contestID int) string {
	return fmt.Sprintf("codearena:contest:%d:leaderboard", contestID)
}

func GlobalLeaderboardKey() string {
	return "codearena:leaderboard:global"
}

func XPLeaderboardKey() string {
	return "codearena:leaderboard:xp"
}
