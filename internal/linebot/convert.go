package linebot

import (
	"life-assistant-bot/internal/domain"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// toSDKMessages converts a dispatcher batch into wire messages,
// preserving order. Exactly one SDK message per domain message.
func toSDKMessages(batch []domain.Message) []messaging_api.MessageInterface {
	out := make([]messaging_api.MessageInterface, 0, len(batch))
	for _, m := range batch {
		out = append(out, toSDKMessage(m))
	}
	return out
}

func toSDKMessage(m domain.Message) messaging_api.MessageInterface {
	switch {
	case len(m.Confirm) > 0:
		altText := m.AltText
		if altText == "" {
			altText = m.Text
		}
		return &messaging_api.TemplateMessage{
			AltText: altText,
			Template: &messaging_api.ConfirmTemplate{
				Text:    m.Text,
				Actions: toSDKActions(m.Confirm),
			},
		}

	case m.ImageURL != "":
		preview := m.PreviewURL
		if preview == "" {
			preview = m.ImageURL
		}
		return &messaging_api.ImageMessage{
			OriginalContentUrl: m.ImageURL,
			PreviewImageUrl:    preview,
		}

	default:
		msg := &messaging_api.TextMessage{Text: m.Text}
		if len(m.QuickReplies) > 0 {
			items := make([]messaging_api.QuickReplyItem, 0, len(m.QuickReplies))
			for _, a := range m.QuickReplies {
				items = append(items, messaging_api.QuickReplyItem{
					Action: toSDKAction(a),
				})
			}
			msg.QuickReply = &messaging_api.QuickReply{Items: items}
		}
		return msg
	}
}

func toSDKActions(actions []domain.Action) []messaging_api.ActionInterface {
	out := make([]messaging_api.ActionInterface, 0, len(actions))
	for _, a := range actions {
		out = append(out, toSDKAction(a))
	}
	return out
}

func toSDKAction(a domain.Action) *messaging_api.PostbackAction {
	return &messaging_api.PostbackAction{
		Label:       a.Label,
		Data:        a.Data,
		DisplayText: a.DisplayText,
	}
}
