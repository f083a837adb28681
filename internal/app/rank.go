package app

import (
	"fmt"

	"daily-riddle-bot/internal/domain"
)

// StreakThreshold is the number of consecutive solves that earns the streak badge.
const StreakThreshold = 3

type tier struct {
	upTo  int // inclusive; -1 means unbounded
	label string
}

var tiers = []tier{
	{upTo: 10, label: "Sushi Newbie 🍽️"},
	{upTo: 25, label: "Maki Novice 🍣"},
	{upTo: 40, label: "Sashimi Skilled 🍤"},
	{upTo: 75, label: "Brainy Botan 🧠"},
	{upTo: -1, label: "Sushi Einstein 🧪"},
}

const (
	// TopScorerLevel marks the global maximum scorer badge.
	TopScorerLevel = 100
	// StreakLevel marks the streak badge.
	StreakLevel = 50
)

// RankFor maps a total to its tier. Holding the global maximum (above zero)
// beats everything, including when several users share it; a streak beats the tier table.
func RankFor(total, streak, maxTotal int) domain.RankTier {
	if maxTotal > 0 && total == maxTotal {
		return domain.RankTier{Level: TopScorerLevel, Label: "🍣 Master Sushi Chef (Top scorer)"}
	}
	if streak >= StreakThreshold {
		return domain.RankTier{Level: StreakLevel, Label: fmt.Sprintf("🔥 Streak Samurai (Solved %d riddles consecutively)", streak)}
	}
	return TierFor(total)
}

// TierFor applies only the threshold table.
func TierFor(total int) domain.RankTier {
	for i, t := range tiers {
		if t.upTo < 0 || total <= t.upTo {
			return domain.RankTier{Level: i + 1, Label: t.label}
		}
	}
	last := len(tiers) - 1
	return domain.RankTier{Level: last + 1, Label: tiers[last].label}
}

// MaxTotal returns the highest total across all users.
func MaxTotal(scores map[string]domain.UserScore) int {
	highest := 0
	for _, s := range scores {
		if t := s.Total(); t > highest {
			highest = t
		}
	}
	return highest
}
