package discord

import (
	"context"
	"fmt"
	"strconv"

	"daily-riddle-bot/internal/domain"
	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// sender is the slice of *discordgo.Session the publisher uses.
type sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Publisher posts to the riddle and admin channels and DMs users. It implements app.Publisher.
type Publisher struct {
	s              sender
	channelID      string
	adminChannelID string
	revealAt       domain.TimeOfDay
	limiter        *rate.Limiter
}

func NewPublisher(s sender, channelID, adminChannelID string, revealAt domain.TimeOfDay, perSecond float64) *Publisher {
	if perSecond <= 0 {
		perSecond = 5
	}
	return &Publisher{
		s:              s,
		channelID:      channelID,
		adminChannelID: adminChannelID,
		revealAt:       revealAt,
		limiter:        rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (p *Publisher) PublishQuestion(ctx context.Context, q domain.QuestionRecord, note string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	content := questionText(q, p.revealAt, note)
	if len(q.Choices) == 0 {
		_, err := p.s.ChannelMessageSend(p.channelID, content)
		return err
	}
	_, err := p.s.ChannelMessageSendComplex(p.channelID, &discordgo.MessageSend{
		Content:    content,
		Components: choiceButtons(q),
	})
	return err
}

func (p *Publisher) PublishReveal(ctx context.Context, q domain.QuestionRecord, solvers int) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := p.s.ChannelMessageSend(p.channelID, revealText(q, solvers))
	return err
}

func (p *Publisher) Announce(ctx context.Context, text string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := p.s.ChannelMessageSend(p.channelID, text)
	return err
}

func (p *Publisher) NotifyModerators(ctx context.Context, text string) error {
	if p.adminChannelID == "" {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := p.s.ChannelMessageSend(p.adminChannelID, text)
	return err
}

// RespondEphemeral delivers a private message by DM.
func (p *Publisher) RespondEphemeral(ctx context.Context, userID, text string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	ch, err := p.s.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", userID, err)
	}
	_, err = p.s.ChannelMessageSend(ch.ID, text)
	return err
}

func questionText(q domain.QuestionRecord, revealAt domain.TimeOfDay, note string) string {
	text := fmt.Sprintf("@everyone %s. %s ***(Answer will be revealed at %s)***", q.ID, q.Text, revealAt)
	if note != "" {
		text += "\n\n" + note
	}
	return text
}

func revealText(q domain.QuestionRecord, solvers int) string {
	if q.FreeAnswer() {
		return fmt.Sprintf("⏰ Riddle %s is closed. %d member(s) answered.", q.ID, solvers)
	}
	return fmt.Sprintf("⏰ The answer to riddle %s was: ||%s||\n🏆 Solved by %d member(s).", q.ID, q.Answer, solvers)
}

const answerButtonPrefix = "answer"

func choiceButtons(q domain.QuestionRecord) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(q.Choices))
	for i, choice := range q.Choices {
		buttons = append(buttons, discordgo.Button{
			Label:    choice,
			Style:    discordgo.PrimaryButton,
			CustomID: answerCustomID(q.ID, i),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func answerCustomID(questionID string, choice int) string {
	return answerButtonPrefix + ":" + questionID + ":" + strconv.Itoa(choice)
}
