package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"path/filepath"
	"strings"
	"time"

	itunes "github.com/eduncan911/podcast"
)

const (
	itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	mediaNS  = "http://search.yahoo.com/mrss/"
	atomNS   = "http://www.w3.org/2005/Atom"
)

var enclosureTypes = map[string]itunes.EnclosureType{
	".m4a":  itunes.M4A,
	".m4v":  itunes.M4V,
	".mp4":  itunes.MP4,
	".mp3":  itunes.MP3,
	".mov":  itunes.MOV,
	".pdf":  itunes.PDF,
	".epub": itunes.EPUB,
}

// EnclosureMIME guesses the enclosure type from a file name, defaulting to audio/mpeg.
func EnclosureMIME(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if et, ok := enclosureTypes[ext]; ok {
		return et.String()
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return itunes.MP3.String()
}

type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

// Run renders an RSS 2.0 document with iTunes tags. The media namespace is
// declared only when an image is present.
func (g *Generator) Run(channel Channel, episodes []Episode) (string, error) {
	var body bytes.Buffer
	usesMedia := false

	g.writeElement(&body, "title", channel.Title, 4)
	g.writeElement(&body, "link", channel.Link, 4)
	g.writeElement(&body, "description", channel.Description, 4)

	if channel.SelfURL != "" {
		body.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfURL)))
	}

	lastBuildDate := channel.LastBuildDate
	if lastBuildDate.IsZero() {
		lastBuildDate = time.Now()
	}
	g.writeElement(&body, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&body, "generator", fmt.Sprintf("pod-archive/%s", g.version), 4)
	g.writeElement(&body, "language", channel.Language, 4)
	g.writeElement(&body, "itunes:author", channel.Author, 4)
	g.writeElement(&body, "itunes:summary", channel.Summary, 4)

	if channel.CoverURL != "" {
		usesMedia = true
		g.writeImageRef(&body, "itunes:image", "href", channel.CoverURL, 4)
		body.WriteString("    <image>\n")
		g.writeElement(&body, "url", channel.CoverURL, 6)
		g.writeElement(&body, "title", channel.Title, 6)
		g.writeElement(&body, "link", channel.Link, 6)
		body.WriteString("    </image>\n")
		g.writeImageRef(&body, "media:thumbnail", "url", channel.CoverURL, 4)
	}

	for _, episode := range episodes {
		if g.writeItem(&body, episode) {
			usesMedia = true
		}
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf(`<rss version="2.0" xmlns:itunes="%s" xmlns:atom="%s"`, itunesNS, atomNS))
	if usesMedia {
		buf.WriteString(fmt.Sprintf(` xmlns:media="%s"`, mediaNS))
	}
	buf.WriteString(">\n  <channel>\n")
	buf.Write(body.Bytes())
	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String(), nil
}

// writeItem reports whether it emitted any media: element.
func (g *Generator) writeItem(buf *bytes.Buffer, episode Episode) bool {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "title", episode.Title, 6)
	g.writeElement(buf, "link", episode.Link, 6)

	buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"%d\" type=\"%s\" />\n",
		html.EscapeString(episode.EnclosureURL),
		episode.EnclosureLength,
		html.EscapeString(episode.EnclosureType)))

	publishedAt := episode.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}
	g.writeElement(buf, "pubDate", publishedAt.Format(time.RFC1123Z), 6)

	if episode.GUID != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(episode.GUID)))
		xml.EscapeText(buf, []byte(episode.GUID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "description", episode.Description, 6)
	g.writeElement(buf, "itunes:summary", episode.Description, 6)
	g.writeElement(buf, "itunes:author", episode.Author, 6)
	g.writeElement(buf, "itunes:subtitle", episode.Subtitle, 6)
	g.writeElement(buf, "itunes:duration", episode.Duration, 6)

	if episode.ImageURL == "" {
		buf.WriteString("    </item>\n")
		return false
	}

	g.writeImageRef(buf, "itunes:image", "href", episode.ImageURL, 6)
	g.writeImageRef(buf, "media:thumbnail", "url", episode.ImageURL, 6)
	buf.WriteString(fmt.Sprintf("      <media:content url=\"%s\" medium=\"image\" />\n",
		html.EscapeString(episode.ImageURL)))

	buf.WriteString("    </item>\n")
	return true
}

func (g *Generator) writeImageRef(buf *bytes.Buffer, tag, attr, url string, indent int) {
	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString(fmt.Sprintf("<%s %s=\"%s\" />\n", tag, attr, html.EscapeString(url)))
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
