package discord

import (
	"fmt"
	"strconv"
	"strings"

	"daily-riddle-bot/internal/domain"
	"github.com/bwmarrin/discordgo"
)

const goldColor = 0xF1C40F

func formatScore(name string, card domain.ScoreCard) string {
	return fmt.Sprintf("📊 %s's score: **%d** (🧠 %d insight, 🍣 %d contribution), 🔥 Streak: %d\n🏅 %s",
		name, card.Total, card.Insight, card.Contribution, card.Streak, card.Rank.Label)
}

func leaderboardEmbed(lb domain.LeaderboardPage) *discordgo.MessageEmbed {
	title := "🏆 Riddle Leaderboard"
	if lb.Category != domain.CategoryAll {
		title += " - " + string(lb.Category)
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s (%d/%d)", title, lb.Page+1, lb.TotalPages),
		Color: goldColor,
	}
	for _, e := range lb.Entries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%d. <@%s>", e.Position, e.UserID),
			Value: fmt.Sprintf("Score: %d | Streak: %d\nRank: %s", e.Metric(lb.Category), e.Streak, e.Rank),
		})
	}
	return embed
}

// leaderboardButtons encodes category, target page and owner into each button.
func leaderboardButtons(lb domain.LeaderboardPage, owner string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Previous",
			Style:    discordgo.SecondaryButton,
			CustomID: navCustomID(lb.Category, lb.Page-1, owner),
			Disabled: lb.Page <= 0,
		},
		discordgo.Button{
			Label:    "Next",
			Style:    discordgo.SecondaryButton,
			CustomID: navCustomID(lb.Category, lb.Page+1, owner),
			Disabled: lb.Page >= lb.TotalPages-1,
		},
	}}}
}

type navTarget struct {
	category domain.Category
	page     int
	owner    string
}

func navCustomID(category domain.Category, page int, owner string) string {
	return strings.Join([]string{leaderboardNavID, string(category), strconv.Itoa(page), owner}, ":")
}

func parseNavCustomID(id string) (navTarget, bool) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[0] != leaderboardNavID {
		return navTarget{}, false
	}
	category, err := domain.ParseCategory(parts[1])
	if err != nil {
		return navTarget{}, false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return navTarget{}, false
	}
	return navTarget{category: category, page: page, owner: parts[3]}, true
}

func parseAnswerCustomID(id string) (string, int, bool) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] != answerButtonPrefix || parts[1] == "" {
		return "", 0, false
	}
	choice, err := strconv.Atoi(parts[2])
	if err != nil || choice < 0 {
		return "", 0, false
	}
	return parts[1], choice, true
}

// modalValues flattens submitted text inputs by custom ID.
func modalValues(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, c := range rows {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				out[input.CustomID] = input.Value
			}
		}
	}
	return out
}

// splitChoices reads one choice per line, skipping blanks.
func splitChoices(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
