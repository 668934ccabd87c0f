package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"path"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/rss-radio/app/cfg"
	"github.com/lysyi3m/rss-radio/app/database"
)

const summaryChars = 400

// AudioSizer reports the byte size of a stored audio object, or 0 if unknown.
type AudioSizer interface {
	Size(audioURL string) int64
}

// Generator renders a feed's ready articles as a podcast RSS document.
type Generator struct {
	sizer AudioSizer
}

func NewGenerator(sizer AudioSizer) *Generator {
	return &Generator{sizer: sizer}
}

func (g *Generator) Run(feed database.Feed, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">`)
	buf.WriteString("\n  <channel>\n")

	title := feed.DisplayTitle()
	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", feed.URL, 4)
	description := feed.Description
	if description == "" {
		description = fmt.Sprintf("Radio edition of %s", feed.URL)
	}
	g.writeElement(&buf, "description", description, 4)

	selfLink := fmt.Sprintf("%s/feeds/%s/podcast.xml", cfg.Get().PublicBaseURL(), feed.ID)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 {
		lastBuildDate = cmp.Or(articles[0].PublishedAt, articles[0].UpdatedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Radio/%s", cfg.Get().Version), 4)
	g.writeElement(&buf, "itunes:author", title, 4)

	for _, article := range articles {
		if !article.HasAudio() {
			continue
		}
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(article.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", article.Title, 6)
	g.writeElement(buf, "link", article.URL, 6)

	if article.HasTranscript() {
		g.writeElement(buf, "description", truncate(*article.Transcript, summaryChars), 6)
	}

	g.writeElement(buf, "pubDate", article.PublishedAt.In(time.Local).Format(time.RFC1123Z), 6)

	audioURL := *article.AudioURL
	var length int64
	if g.sizer != nil {
		length = g.sizer.Size(audioURL)
	}
	buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"%d\" type=\"%s\" />\n",
		html.EscapeString(audioURL),
		length,
		html.EscapeString(audioType(audioURL))))

	buf.WriteString("    </item>\n")
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

func audioType(audioURL string) string {
	if t := mime.TypeByExtension(path.Ext(audioURL)); t != "" {
		return t
	}
	return "audio/mpeg"
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
