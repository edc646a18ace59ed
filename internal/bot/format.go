package bot

import "fmt"

const helpText = `Commands:
REGISTER <password> - create an account
LOGIN <password> - start receiving the feed
IGNORE <regex> - stop receiving entries whose title matches

Commands also work with a leading slash, e.g. /login <password>.`

// FormatDelivery renders a feed line as a direct message.
func FormatDelivery(channel, author, text string) string {
	return fmt.Sprintf("[%s] %s: %s", channel, author, text)
}
