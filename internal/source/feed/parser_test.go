package feed

import (
	"testing"

	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/pkg/logger"
)

func testParser() *Parser {
	return New(models.SourceConfig{ID: "t", Name: "T"}, logger.Default())
}

func TestParseRSS2(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title>
<item>
  <title>First &amp; foremost</title>
  <link>https://x.test/1</link>
  <pubDate>Sun, 30 Aug 2026 09:30:00 GMT</pubDate>
  <description><![CDATA[<p>Some <b>rich</b> text</p>]]></description>
</item>
<item>
  <title>No date</title>
  <link>https://x.test/2</link>
  <pubDate>not-a-date</pubDate>
</item>
<item>
  <title></title>
  <link>https://x.test/3</link>
  <pubDate>Sun, 30 Aug 2026 09:30:00 GMT</pubDate>
</item>
</channel></rss>`

	items, err := testParser().Parse(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (unparseable date and empty title dropped)", len(items))
	}
	item := items[0]
	if item.Title != "First & foremost" {
		t.Errorf("title = %q", item.Title)
	}
	if item.Summary != "Some rich text" {
		t.Errorf("summary should have tags stripped: %q", item.Summary)
	}
	if item.PublishedAt != "2026-08-30T09:30:00Z" {
		t.Errorf("publishedAt = %q", item.PublishedAt)
	}
}

func TestParseAtom(t *testing.T) {
	doc := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <title>Atom entry</title>
    <link href="https://x.test/atom/1"/>
    <updated>2026-08-29T12:00:00Z</updated>
    <summary>entry summary</summary>
  </entry>
</feed>`

	items, err := testParser().Parse(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].URL != "https://x.test/atom/1" {
		t.Errorf("url = %q", items[0].URL)
	}
	if items[0].PublishedAt != "2026-08-29T12:00:00Z" {
		t.Errorf("publishedAt = %q (updated should back-fill published)", items[0].PublishedAt)
	}
}

func TestParseRDF(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns="http://purl.org/rss/1.0/"
         xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="https://x.test"><title>RDF</title><link>https://x.test</link></channel>
  <item rdf:about="https://x.test/rdf/1">
    <title>RDF item</title>
    <link>https://x.test/rdf/1</link>
    <dc:date>2026-08-28T08:00:00Z</dc:date>
  </item>
</rdf:RDF>`

	items, err := testParser().Parse(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Title != "RDF item" {
		t.Errorf("title = %q", items[0].Title)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := testParser().Parse("{not xml at all"); err == nil {
		t.Error("expected an error for non-feed input")
	}
}
