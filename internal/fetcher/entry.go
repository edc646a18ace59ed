package fetcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"feedrelay/internal/model"
)

// CommentLinkSuffix is appended by the issue tracker to links that jump to the latest comment.
const CommentLinkSuffix = "&page=com.atlassian.jira.plugin.system.issuetabpanels:comment-tabpanel"

// MaxAuthorLength is the longest author handle produced by Normalize.
const MaxAuthorLength = 20

// ErrTitleTooShort is returned when a title cannot hold the author prefix it should start with.
var ErrTitleTooShort = errors.New("title shorter than author prefix")

var (
	stripTags  = bluemonday.StrictPolicy()
	roleTagRe  = regexp.MustCompile(`\[.*?]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// RawItem is a feed item before normalization.
type RawItem struct {
	Link   string
	Title  string
	Author string
}

// ItemFromFeed extracts the fields Normalize needs from a parsed feed item.
func ItemFromFeed(item *gofeed.Item) RawItem {
	raw := RawItem{Link: item.Link, Title: item.Title}
	switch {
	case item.Author != nil:
		raw.Author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		raw.Author = item.Authors[0].Name
	}
	return raw
}

// Normalize turns a raw feed item into a FeedEntry.
func Normalize(item RawItem) (model.FeedEntry, error) {
	title, err := normalizeTitle(item.Title, item.Author)
	if err != nil {
		return model.FeedEntry{}, err
	}
	return model.FeedEntry{
		Link:   strings.ReplaceAll(item.Link, CommentLinkSuffix, ""),
		Title:  title,
		Author: normalizeAuthor(item.Author),
	}, nil
}

// NormalizeItems normalizes every item of a feed in order.
// Items that cannot be normalized are returned as errors alongside the good ones.
func NormalizeItems(items []*gofeed.Item) ([]model.FeedEntry, []error) {
	entries := make([]model.FeedEntry, 0, len(items))
	var errs []error
	for i, item := range items {
		if item == nil {
			continue
		}
		e, err := Normalize(ItemFromFeed(item))
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d (%s): %w", i, item.Link, err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, errs
}

// The feed title reads "<author> <action>"; the author part is dropped.
func normalizeTitle(rawTitle, rawAuthor string) (string, error) {
	title := html.UnescapeString(stripTags.Sanitize(rawTitle))
	title = strings.TrimSpace(whitespace.ReplaceAllString(title, " "))

	rawAuthor = strings.TrimSpace(rawAuthor)
	for _, prefix := range []string{rawAuthor, displayName(rawAuthor)} {
		if prefix != "" && strings.HasPrefix(title, prefix+" ") {
			return strings.TrimSpace(title[len(prefix)+1:]), nil
		}
	}

	// Rendered names can differ from the author field; fall back to
	// dropping as many words as the author name has.
	n := len(strings.Fields(displayName(rawAuthor)))
	if n == 0 {
		return title, nil
	}
	words := strings.SplitN(title, " ", n+1)
	if len(words) <= n {
		return "", fmt.Errorf("%w: %q by %q", ErrTitleTooShort, title, rawAuthor)
	}
	return words[n], nil
}

func displayName(author string) string {
	return strings.TrimSpace(roleTagRe.ReplaceAllString(author, ""))
}

func normalizeAuthor(author string) string {
	name := strings.Join(strings.Fields(displayName(author)), "_")
	return abbreviate(name, MaxAuthorLength)
}

func abbreviate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
