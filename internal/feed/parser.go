package feed

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

const unknownTitle = "Unknown Feed"

// Headline is the part of a parsed feed that headline displays.
type Headline struct {
	Title       string
	Description string
	Link        string
	// Latest is the title of the newest item, if any.
	Latest string
}

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// Parse reads an RSS, Atom or JSON feed and extracts its headline. A feed
// without a title falls back to its link host.
func (p *Parser) Parse(reader io.Reader) (*Headline, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	h := &Headline{
		Title:       strings.TrimSpace(feed.Title),
		Description: strings.TrimSpace(feed.Description),
		Link:        feed.Link,
	}
	if h.Link == "" && feed.FeedLink != "" {
		h.Link = feed.FeedLink
	}
	if len(feed.Items) > 0 {
		h.Latest = strings.TrimSpace(feed.Items[0].Title)
	}
	if h.Title == "" {
		h.Title = titleFromLink(h.Link)
	}

	return h, nil
}

func titleFromLink(link string) string {
	if link == "" {
		return unknownTitle
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return unknownTitle
	}
	return u.Hostname()
}
