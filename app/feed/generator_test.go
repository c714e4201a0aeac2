package feed

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEpisodes() []Episode {
	published := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	return []Episode{
		{
			Title:           "Ep 1: Hello & Welcome",
			Link:            "https://pods.example.com/pods/Show/2024-03-05-ep-1.mp3",
			GUID:            "ep-1-guid",
			EnclosureURL:    "https://pods.example.com/pods/Show/2024-03-05-ep-1.mp3",
			EnclosureType:   "audio/mpeg",
			EnclosureLength: 1234,
			PublishedAt:     published,
			Description:     "First <b>episode</b>",
			Author:          "Jo Host",
			Subtitle:        "Say hi",
			Duration:        "00:42:00",
			ImageURL:        "https://pods.example.com/pods/Show/2024-03-05-ep-1.jpg",
		},
		{
			Title:           "Ep 2",
			Link:            "https://pods.example.com/pods/Show/2024-03-12-ep-2.mp3",
			GUID:            "2024-03-12-ep-2.mp3",
			EnclosureURL:    "https://pods.example.com/pods/Show/2024-03-12-ep-2.mp3",
			EnclosureType:   "audio/mpeg",
			EnclosureLength: 99,
			PublishedAt:     published.Add(7 * 24 * time.Hour),
		},
	}
}

func TestGenerateRSS(t *testing.T) {
	channel := Channel{
		Title:       "Show",
		Link:        "https://pods.example.com/pods/Show",
		Description: "Archived feed for Show",
		SelfURL:     "https://pods.example.com/pods/Show/archive.xml",
		CoverURL:    "https://pods.example.com/pods/Show/cover.jpg",
	}

	rss, err := NewGenerator("test").Run(channel, sampleEpisodes())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rss, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, rss, `xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"`)
	assert.Contains(t, rss, `xmlns:media="http://search.yahoo.com/mrss/"`)
	assert.Contains(t, rss, `<atom:link href="https://pods.example.com/pods/Show/archive.xml" rel="self" type="application/rss+xml" />`)
	assert.Contains(t, rss, "<generator>pod-archive/test</generator>")

	assert.Contains(t, rss, `<itunes:image href="https://pods.example.com/pods/Show/cover.jpg" />`)
	assert.Contains(t, rss, "<url>https://pods.example.com/pods/Show/cover.jpg</url>")
	assert.Contains(t, rss, `<media:thumbnail url="https://pods.example.com/pods/Show/cover.jpg" />`)

	assert.Contains(t, rss, "<title>Ep 1: Hello &amp; Welcome</title>")
	assert.Contains(t, rss, `<enclosure url="https://pods.example.com/pods/Show/2024-03-05-ep-1.mp3" length="1234" type="audio/mpeg" />`)
	assert.Contains(t, rss, "<pubDate>Tue, 05 Mar 2024 10:00:00 +0000</pubDate>")
	assert.Contains(t, rss, `<guid isPermaLink="false">ep-1-guid</guid>`)
	assert.Contains(t, rss, "<description>First &lt;b&gt;episode&lt;/b&gt;</description>")
	assert.Contains(t, rss, "<itunes:author>Jo Host</itunes:author>")
	assert.Contains(t, rss, "<itunes:subtitle>Say hi</itunes:subtitle>")
	assert.Contains(t, rss, "<itunes:duration>00:42:00</itunes:duration>")
	assert.Contains(t, rss, `<media:content url="https://pods.example.com/pods/Show/2024-03-05-ep-1.jpg" medium="image" />`)

	assert.Equal(t, 2, strings.Count(rss, "<item>"))

	var doc struct {
		Channel struct {
			Items []struct {
				Title string `xml:"title"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	require.NoError(t, xml.Unmarshal([]byte(rss), &doc))
	require.Len(t, doc.Channel.Items, 2)
	assert.Equal(t, "Ep 2", doc.Channel.Items[1].Title)
}

func TestGenerateRSSWithoutImagesOmitsMediaNamespace(t *testing.T) {
	episodes := sampleEpisodes()[1:]

	rss, err := NewGenerator("test").Run(Channel{Title: "Show", Link: "https://x/pods/Show"}, episodes)
	require.NoError(t, err)

	assert.NotContains(t, rss, "xmlns:media")
	assert.NotContains(t, rss, "<image>")
	assert.NotContains(t, rss, "<description>")
	assert.Contains(t, rss, `<guid isPermaLink="false">2024-03-12-ep-2.mp3</guid>`)
}

func TestGenerateRSSEmpty(t *testing.T) {
	rss, err := NewGenerator("test").Run(Channel{Title: "Empty"}, nil)
	require.NoError(t, err)

	assert.NotContains(t, rss, "<item>")
	assert.Contains(t, rss, "<title>Empty</title>")
	assert.Contains(t, rss, "<lastBuildDate>")
}

func TestEnclosureMIME(t *testing.T) {
	assert.Equal(t, "audio/mpeg", EnclosureMIME("a.mp3"))
	assert.Equal(t, "audio/mpeg", EnclosureMIME("a.MP3"))
	assert.Equal(t, "audio/x-m4a", EnclosureMIME("a.m4a"))
	assert.Equal(t, "video/mp4", EnclosureMIME("a.mp4"))
	assert.Equal(t, "audio/mpeg", EnclosureMIME("no-extension"))
}
