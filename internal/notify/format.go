// Package notify formats job postings for delivery and provides the
// dry-run notifier.
package notify

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

const (
	// DefaultTitle replaces a missing or placeholder title in messages.
	DefaultTitle = "Job opening"
	// MissingDate is shown when a posting carries no date.
	MissingDate = "Not specified"
)

var markdownEscaper = strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`")

// EscapeMarkdown escapes the characters Telegram's legacy Markdown treats as markup.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Format renders the message sent for posting.
func Format(posting crawler.JobPosting) string {
	title := strings.TrimSpace(posting.Title)
	if title == "" || title == "N/A" {
		title = DefaultTitle
	}
	date := posting.PostedDate
	if date == "" {
		date = MissingDate
	}
	return fmt.Sprintf(
		"💼 %s\n🏢 *%s*\n📅 Posted: %s\n📍 Location: %s\n🔗 %s",
		EscapeMarkdown(title),
		EscapeMarkdown(posting.Company),
		date,
		posting.Location,
		posting.ApplyLink,
	)
}
