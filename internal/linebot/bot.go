package linebot

import (
	"context"
	"log"

	"life-assistant-bot/internal/domain"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// EventSink is the dispatcher surface the bot feeds events into.
type EventSink interface {
	HandleText(ctx context.Context, userID, text string) []domain.Message
	HandleLocation(ctx context.Context, userID, address string) []domain.Message
	HandleImage(ctx context.Context, userID, imagePath string) []domain.Message
	HandlePostback(ctx context.Context, userID, data string) []domain.Message
	HandleFollow(ctx context.Context, userID string) []domain.Message
}

// Replier sends one converted batch for a reply token.
type Replier interface {
	Reply(replyToken string, batch []messaging_api.MessageInterface) error
}

// ContentStore downloads uploaded media to local storage.
type ContentStore interface {
	SaveMessageContent(messageID string) (string, error)
}

// Bot turns webhook callback events into dispatcher calls and sends the
// resulting batches back over the reply token.
type Bot struct {
	sink    EventSink
	replier Replier
	content ContentStore
}

func NewBot(sink EventSink, replier Replier, content ContentStore) *Bot {
	return &Bot{sink: sink, replier: replier, content: content}
}

// HandleEvents processes a callback envelope. Events are independent;
// one failing event never blocks the rest.
func (b *Bot) HandleEvents(ctx context.Context, events []webhook.EventInterface) {
	for _, ev := range events {
		b.handleEvent(ctx, ev)
	}
}

func (b *Bot) handleEvent(ctx context.Context, ev webhook.EventInterface) {
	switch e := ev.(type) {
	case webhook.MessageEvent:
		b.reply(e.ReplyToken, b.handleMessage(ctx, userID(e.Source), e.Message))

	case webhook.FollowEvent:
		b.reply(e.ReplyToken, b.sink.HandleFollow(ctx, userID(e.Source)))

	case webhook.PostbackEvent:
		b.reply(e.ReplyToken, b.sink.HandlePostback(ctx, userID(e.Source), e.Postback.Data))
	}
}

func (b *Bot) handleMessage(ctx context.Context, userID string, content webhook.MessageContentInterface) []domain.Message {
	switch m := content.(type) {
	case webhook.TextMessageContent:
		return b.sink.HandleText(ctx, userID, m.Text)

	case webhook.LocationMessageContent:
		return b.sink.HandleLocation(ctx, userID, m.Address)

	case webhook.ImageMessageContent:
		path, err := b.content.SaveMessageContent(m.Id)
		if err != nil {
			log.Printf("image download failed: %v", err)
			return []domain.Message{domain.TextMessage("❌ 圖片下載失敗，請再傳一次！")}
		}
		return b.sink.HandleImage(ctx, userID, path)
	}
	return nil
}

func (b *Bot) reply(replyToken string, batch []domain.Message) {
	if len(batch) == 0 {
		return
	}
	if err := b.replier.Reply(replyToken, toSDKMessages(batch)); err != nil {
		log.Printf("reply failed: %v", err)
	}
}

func userID(source webhook.SourceInterface) string {
	if s, ok := source.(webhook.UserSource); ok {
		return s.UserId
	}
	return ""
}
