package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"daily-riddle-bot/internal/app"
	"daily-riddle-bot/internal/domain"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Bot turns gateway events into RiddleService calls.
type Bot struct {
	session   *discordgo.Session
	service   *app.RiddleService
	channelID string
	guildID   string
	log       *zap.Logger
}

func NewBot(session *discordgo.Session, service *app.RiddleService, channelID, guildID string, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		session:   session,
		service:   service,
		channelID: channelID,
		guildID:   guildID,
		log:       logger.Named("discord"),
	}
}

// Start opens the gateway and registers slash commands.
func (b *Bot) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("logged in", zap.String("user", r.User.Username), zap.String("id", r.User.ID))
	})
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onMessage)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, Commands()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.ChannelID != b.channelID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := b.service.AnswerAttempt(ctx, domain.AnswerRequest{
		UserID: m.Author.ID,
		Text:   strings.TrimSpace(m.Content),
	})
	if err != nil {
		b.log.Error("answer attempt failed", zap.String("user", m.Author.ID), zap.Error(err))
		return
	}
	if result.Outcome == app.OutcomeClosed {
		return
	}

	// keep guesses out of the channel so others cannot copy them
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		b.log.Debug("delete guess failed", zap.Error(err))
	}
	if result.Outcome == app.OutcomeCorrect && result.Award.Awarded {
		return
	}
	if result.Outcome == app.OutcomeAlreadyCorrect {
		return
	}
	b.sendTransient(s, m.ChannelID, fmt.Sprintf("%s %s", m.Author.Mention(), result.Message))
}

// sendTransient posts a notice and removes it after a few seconds.
func (b *Bot) sendTransient(s *discordgo.Session, channelID, text string) {
	msg, err := s.ChannelMessageSend(channelID, text)
	if err != nil {
		b.log.Debug("send notice failed", zap.Error(err))
		return
	}
	time.AfterFunc(5*time.Second, func() {
		_ = s.ChannelMessageDelete(channelID, msg.ID)
	})
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, s, i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(ctx, s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, s, i)
	}
}

func (b *Bot) handleCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)
	user := interactionUser(i)
	if user == nil {
		return
	}
	if adminCommands[data.Name] && !isModerator(i) {
		b.respond(s, i, "⛔ You need the Manage Server permission to use this command.")
		return
	}

	switch data.Name {
	case "submitriddle":
		if err := s.InteractionRespond(i.Interaction, submitModal()); err != nil {
			b.log.Warn("open modal failed", zap.Error(err))
		}

	case "listquestions":
		page := pageOption(opts)
		b.respond(s, i, app.FormatQuestionList(b.service.ListQuestions(ctx, page)))

	case "removequestion":
		id := ""
		if o, ok := opts["id"]; ok {
			id = o.StringValue()
		}
		removed, err := b.service.RemoveQuestion(ctx, id)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("✅ Removed riddle ID %s: \"%s\"", removed.ID, removed.Text))

	case "addpoints", "removepoints":
		direction := domain.DirectionAdd
		if data.Name == "removepoints" {
			direction = domain.DirectionRemove
		}
		req, target, err := adjustRequest(s, opts, direction)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		value, err := b.service.AdminAdjust(ctx, req)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		verb := "Added"
		if direction == domain.DirectionRemove {
			verb = "Removed"
		}
		b.respond(s, i, fmt.Sprintf("✅ %s %d %s point(s) for %s. New %s total: %d.", verb, req.Delta, req.Field, target.Mention(), req.Field, value))

	case "score":
		card, err := b.service.Score(ctx, user.ID)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, formatScore(user.Username, card))

	case "leaderboard":
		category := domain.CategoryAll
		if o, ok := opts["category"]; ok {
			c, err := domain.ParseCategory(o.StringValue())
			if err != nil {
				b.respondError(s, i, err)
				return
			}
			category = c
		}
		b.respondLeaderboard(ctx, s, i, discordgo.InteractionResponseChannelMessageWithSource, category, pageOption(opts), user.ID)
	}
}

func (b *Bot) handleModal(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if data.CustomID != submitModalID {
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}
	values := modalValues(data.Components)
	result, err := b.service.SubmitQuestion(ctx, domain.SubmitRequest{
		Text:          values[modalQuestionID],
		Answer:        values[modalAnswerID],
		Choices:       splitChoices(values[modalChoicesID]),
		SubmitterID:   user.ID,
		SubmitterName: user.Username,
	})
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respond(s, i, fmt.Sprintf("✅ Your riddle has been submitted and added to the queue as #%s! Check your DMs.", result.Question.ID))
}

func (b *Bot) handleComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	user := interactionUser(i)
	if user == nil {
		return
	}

	switch {
	case strings.HasPrefix(customID, answerButtonPrefix+":"):
		questionID, choice, ok := parseAnswerCustomID(customID)
		if !ok {
			return
		}
		q, err := b.service.Question(ctx, questionID)
		if err != nil || choice >= len(q.Choices) {
			b.respond(s, i, domain.UserMessage(domain.ErrQuestionNotFound))
			return
		}
		result, err := b.service.AnswerAttempt(ctx, domain.AnswerRequest{
			UserID:     user.ID,
			QuestionID: questionID,
			Text:       q.Choices[choice],
		})
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, result.Message)

	case strings.HasPrefix(customID, leaderboardNavID+":"):
		nav, ok := parseNavCustomID(customID)
		if !ok {
			return
		}
		if nav.owner != user.ID {
			b.respond(s, i, "⛔ This leaderboard isn't for you.")
			return
		}
		b.respondLeaderboard(ctx, s, i, discordgo.InteractionResponseUpdateMessage, nav.category, nav.page, user.ID)
	}
}

func (b *Bot) respondLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, kind discordgo.InteractionResponseType, category domain.Category, page int, owner string) {
	lb, err := b.service.Leaderboard(ctx, category, page)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(lb.Entries) == 0 {
		b.respond(s, i, "📭 No scores available yet.")
		return
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: kind,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{leaderboardEmbed(lb)},
			Components: leaderboardButtons(lb, owner),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Warn("leaderboard response failed", zap.Error(err))
	}
}

// respond replies privately to the acting user.
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Warn("interaction response failed", zap.Error(err))
	}
}

func (b *Bot) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if errors.Is(err, domain.ErrPersistence) {
		b.log.Error("interaction failed", zap.Error(err))
	}
	b.respond(s, i, domain.UserMessage(err))
}

func adjustRequest(s *discordgo.Session, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, direction domain.Direction) (domain.AdjustRequest, *discordgo.User, error) {
	userOpt, ok := opts["user"]
	if !ok {
		return domain.AdjustRequest{}, nil, domain.ErrMissingUser
	}
	target := userOpt.UserValue(s)

	typeOpt, ok := opts["type"]
	if !ok {
		return domain.AdjustRequest{}, nil, domain.ErrInvalidPointField
	}
	field, err := domain.ParsePointField(typeOpt.StringValue())
	if err != nil {
		return domain.AdjustRequest{}, nil, err
	}

	qtyOpt, ok := opts["quantity"]
	if !ok {
		return domain.AdjustRequest{}, nil, domain.ErrInvalidQuantity
	}
	delta := qtyOpt.IntValue()
	if delta <= 0 {
		return domain.AdjustRequest{}, nil, domain.ErrInvalidQuantity
	}
	return domain.AdjustRequest{UserID: target.ID, Field: field, Delta: int(delta), Direction: direction}, target, nil
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, o := range options {
		out[o.Name] = o
	}
	return out
}

// pageOption converts the 1-based page option to a zero-based index.
func pageOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) int {
	if o, ok := opts["page"]; ok {
		return int(o.IntValue()) - 1
	}
	return 0
}

var adminCommands = map[string]bool{
	"listquestions":  true,
	"removequestion": true,
	"addpoints":      true,
	"removepoints":   true,
}

func isModerator(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&manageGuild != 0
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
