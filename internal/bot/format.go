package bot

import (
	"github.com/mbyx/hilda/internal/archive"
	"github.com/mbyx/hilda/internal/platform"
	"github.com/mbyx/hilda/internal/sheet"
)

// formatMessage renders a message through the sheet's msg template.
//
// With mentions enabled the author and channel render in the platform's
// mention form, which the platform displays as links. The plain form uses
// bare names instead and suits output that never goes back to the
// platform, like backup files.
func (b *Bot) formatMessage(msg *platform.Message, ch *platform.Channel, mentions bool) (string, error) {
	body, err := b.sheet.Get(MessageTemplate)
	if err != nil {
		return "", err
	}

	author := msg.Author
	channel := ch.Name
	if mentions {
		author = msg.AuthorMention
		channel = ch.Mention()
	}

	return sheet.Render(body, sheet.Values{
		"author":  author,
		"guild":   ch.GuildName,
		"channel": channel,
		"date":    msg.CreatedAt.Format(archive.DateLayout),
		"content": msg.Content,
	}), nil
}
