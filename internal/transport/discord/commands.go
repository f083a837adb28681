package discord

import "github.com/bwmarrin/discordgo"

var manageGuild int64 = discordgo.PermissionManageServer

func pointsOptions(verb string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "The user to " + verb,
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "type",
			Description: "Point type",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "insight", Value: "insight"},
				{Name: "contribution", Value: "contribution"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "quantity",
			Description: "Positive number of points",
			Required:    true,
		},
	}
}

// Commands is the slash command set registered on startup.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "submitriddle",
			Description: "Submit a new riddle via a form",
		},
		{
			Name:                     "listquestions",
			Description:              "List all submitted riddles",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "page", Description: "Page number, starting at 1"},
			},
		},
		{
			Name:                     "removequestion",
			Description:              "Remove a submitted riddle by ID",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "Riddle ID", Required: true},
			},
		},
		{
			Name:                     "addpoints",
			Description:              "Add points to a user",
			DefaultMemberPermissions: &manageGuild,
			Options:                  pointsOptions("award points to"),
		},
		{
			Name:                     "removepoints",
			Description:              "Remove points from a user",
			DefaultMemberPermissions: &manageGuild,
			Options:                  pointsOptions("remove points from"),
		},
		{
			Name:        "score",
			Description: "View your score and rank",
		},
		{
			Name:        "leaderboard",
			Description: "Show the top solvers",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "category",
					Description: "Ranking metric",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "all", Value: "all"},
						{Name: "insight", Value: "insight"},
						{Name: "contribution", Value: "contribution"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "page", Description: "Page number, starting at 1"},
			},
		},
	}
}

const (
	submitModalID    = "submit_riddle"
	modalQuestionID  = "question"
	modalAnswerID    = "answer"
	modalChoicesID   = "choices"
	leaderboardNavID = "lb"
)

func submitModal() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: submitModalID,
			Title:    "Submit a New Riddle",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    modalQuestionID,
						Label:       "Riddle Question",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "Enter your riddle question here",
						Required:    true,
						MaxLength:   1000,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    modalAnswerID,
						Label:       "Answer",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "Enter the answer here (leave empty for open questions)",
						Required:    false,
						MaxLength:   500,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    modalChoicesID,
						Label:       "Choices (optional, one per line, 2-4)",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "Leave empty for a free-text riddle",
						Required:    false,
						MaxLength:   400,
					},
				}},
			},
		},
	}
}
