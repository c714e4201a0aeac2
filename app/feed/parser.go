package feed

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Podcast, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	podcast := &Podcast{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
		ImageURL:    p.podcastImage(parsed),
	}

	if parsed.ITunesExt != nil {
		podcast.Author = parsed.ITunesExt.Author
		podcast.Description = cmp.Or(podcast.Description, parsed.ITunesExt.Summary)
	}
	if podcast.Author == "" && parsed.Author != nil {
		podcast.Author = parsed.Author.Name
	}

	podcast.Entries = make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		podcast.Entries = append(podcast.Entries, p.normalizeItem(item, podcast.ImageURL))
	}

	return podcast, nil
}

func (p *Parser) podcastImage(parsed *gofeed.Feed) string {
	var imageURL string
	if parsed.Image != nil {
		imageURL = parsed.Image.URL
	}
	if imageURL == "" && parsed.ITunesExt != nil {
		imageURL = parsed.ITunesExt.Image
	}
	return strings.TrimSpace(imageURL)
}

func (p *Parser) normalizeItem(item *gofeed.Item, podcastImage string) Entry {
	entry := Entry{
		GUID:        item.GUID,
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Summary:     item.Description,
		PublishedAt: item.PublishedParsed,
	}

	if item.Author != nil {
		entry.Author = item.Author.Name
	}

	var itemImage string
	if item.Image != nil {
		itemImage = item.Image.URL
	}

	if itunes := item.ITunesExt; itunes != nil {
		entry.Summary = cmp.Or(strings.TrimSpace(itunes.Summary), entry.Summary)
		entry.Author = cmp.Or(itunes.Author, entry.Author)
		entry.Subtitle = itunes.Subtitle
		entry.Duration = itunes.Duration
		itemImage = cmp.Or(itemImage, itunes.Image)
	}

	entry.ImageURL = strings.TrimSpace(cmp.Or(itemImage, podcastImage))

	// RSS 2.0 allows a single enclosure; later ones are ignored
	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		enclosure := item.Enclosures[0]
		entry.EnclosureURL = strings.TrimSpace(enclosure.URL)
		entry.EnclosureType = enclosure.Type

		if enclosure.Length != "" {
			if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
				entry.EnclosureLength = length
			}
		}
	}

	entry.Raw = p.itemToMap(item)

	return entry
}

// itemToMap flattens a gofeed item through its JSON tags so unknown fields
// survive into the sidecar.
func (p *Parser) itemToMap(item *gofeed.Item) map[string]any {
	data, err := json.Marshal(item)
	if err != nil {
		return map[string]any{}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]any{}
	}
	return raw
}
