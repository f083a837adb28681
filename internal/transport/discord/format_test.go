package discord

import (
	"testing"

	"daily-riddle-bot/internal/domain"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

func TestAnswerCustomIDRoundTrip(t *testing.T) {
	qid, choice, ok := parseAnswerCustomID(answerCustomID("12", 3))
	require.True(t, ok)
	require.Equal(t, "12", qid)
	require.Equal(t, 3, choice)

	for _, bad := range []string{"answer:12", "answer::1", "answer:12:x", "answer:12:-1", "lb:all:0:1"} {
		if _, _, ok := parseAnswerCustomID(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestNavCustomIDRoundTrip(t *testing.T) {
	nav, ok := parseNavCustomID(navCustomID(domain.CategoryInsight, 2, "99"))
	require.True(t, ok)
	require.Equal(t, navTarget{category: domain.CategoryInsight, page: 2, owner: "99"}, nav)

	_, ok = parseNavCustomID("lb:bogus:1:99")
	require.False(t, ok)
}

func TestLeaderboardButtonsDisabledAtEdges(t *testing.T) {
	lb := domain.LeaderboardPage{Category: domain.CategoryAll, Page: 0, TotalPages: 2}
	row := leaderboardButtons(lb, "5")[0].(discordgo.ActionsRow)
	prev := row.Components[0].(discordgo.Button)
	next := row.Components[1].(discordgo.Button)

	require.True(t, prev.Disabled)
	require.False(t, next.Disabled)
	require.Equal(t, "lb:all:1:5", next.CustomID)
}

func TestLeaderboardEmbedUsesCategoryMetric(t *testing.T) {
	lb := domain.LeaderboardPage{
		Category:   domain.CategoryContribution,
		TotalPages: 1,
		Entries: []domain.LeaderboardEntry{
			{Position: 1, UserID: "a", Insight: 9, Contribution: 4, Total: 13, Rank: "Maki Novice 🍣"},
		},
	}
	embed := leaderboardEmbed(lb)
	require.Contains(t, embed.Title, "contribution")
	require.Len(t, embed.Fields, 1)
	require.Equal(t, "1. <@a>", embed.Fields[0].Name)
	require.Contains(t, embed.Fields[0].Value, "Score: 4")
}

func TestModalValues(t *testing.T) {
	rows := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: modalQuestionID, Value: "Who?"},
		}},
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: modalChoicesID, Value: " me \n\n you\n"},
		}},
	}
	values := modalValues(rows)
	require.Equal(t, "Who?", values[modalQuestionID])
	require.Equal(t, []string{"me", "you"}, splitChoices(values[modalChoicesID]))
	require.Nil(t, splitChoices(""))
}

func TestIsModerator(t *testing.T) {
	admin := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{Permissions: discordgo.PermissionManageServer},
	}}
	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{Permissions: discordgo.PermissionSendMessages},
	}}
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "1"}}}

	require.True(t, isModerator(admin))
	require.False(t, isModerator(member))
	require.False(t, isModerator(dm))
	require.Equal(t, "1", interactionUser(dm).ID)
}

func TestAdjustRequestValidation(t *testing.T) {
	user := &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "42"}
	field := &discordgo.ApplicationCommandInteractionDataOption{Name: "type", Type: discordgo.ApplicationCommandOptionString, Value: "insight"}
	qty := func(v float64) *discordgo.ApplicationCommandInteractionDataOption {
		return &discordgo.ApplicationCommandInteractionDataOption{Name: "quantity", Type: discordgo.ApplicationCommandOptionInteger, Value: v}
	}

	req, target, err := adjustRequest(nil, optionMap([]*discordgo.ApplicationCommandInteractionDataOption{user, field, qty(3)}), domain.DirectionRemove)
	require.NoError(t, err)
	require.Equal(t, "42", target.ID)
	require.Equal(t, domain.AdjustRequest{UserID: "42", Field: domain.FieldInsight, Delta: 3, Direction: domain.DirectionRemove}, req)

	_, _, err = adjustRequest(nil, optionMap([]*discordgo.ApplicationCommandInteractionDataOption{field, qty(3)}), domain.DirectionAdd)
	require.ErrorIs(t, err, domain.ErrMissingUser)
	require.Equal(t, "❌ Please choose a user.", domain.UserMessage(err))

	for _, bad := range []float64{0, -2} {
		_, _, err = adjustRequest(nil, optionMap([]*discordgo.ApplicationCommandInteractionDataOption{user, field, qty(bad)}), domain.DirectionAdd)
		require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}
}
