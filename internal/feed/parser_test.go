package feed

import (
	"errors"
	"strings"
	"testing"
)

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:g="http://base.google.com/ns/1.0">
  <title>Store products</title>
  <entry>
    <g:id>sku-001</g:id>
    <g:title>Red mug</g:title>
    <g:image_link>https://cdn.example.com/sku-001.jpg</g:image_link>
  </entry>
  <entry>
    <g:id>sku-002</g:id>
    <g:image_link>https://cdn.example.com/sku-002.jpg</g:image_link>
  </entry>
</feed>`

func TestParseAtomWithNamespaces(t *testing.T) {
	result, err := Parse(strings.NewReader(atomFeed))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(result.Products))
	}
	if result.Products[0].ID != "sku-001" || result.Products[0].Title != "Red mug" {
		t.Fatalf("unexpected first product: %+v", result.Products[0])
	}
	if result.Products[1].ImageURL != "https://cdn.example.com/sku-002.jpg" {
		t.Fatalf("unexpected second product: %+v", result.Products[1])
	}
}

func TestParseRSSItems(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <id>p-1</id>
      <image_link>https://cdn.example.com/p-1.png</image_link>
    </item>
    <item>
      <id>p-2</id>
      <image_link>https://cdn.example.com/p-2.png</image_link>
    </item>
  </channel>
</rss>`

	result, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(result.Products))
	}
}

func TestParsePreservesDocumentOrder(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">`)
	ids := []string{"z", "a", "m", "b"}
	for _, id := range ids {
		sb.WriteString(`<entry><id>` + id + `</id><image_link>https://cdn.example.com/` + id + `.jpg</image_link></entry>`)
	}
	sb.WriteString(`</feed>`)

	result, err := Parse(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, want := range ids {
		if result.Products[i].ID != want {
			t.Fatalf("position %d = %q, want %q", i, result.Products[i].ID, want)
		}
	}
}

func TestParseSkipsItemsMissingRequiredFields(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><id>ok-1</id><image_link>https://cdn.example.com/1.jpg</image_link></entry>
  <entry><image_link>https://cdn.example.com/no-id.jpg</image_link></entry>
  <entry><id>no-image</id></entry>
  <entry><id>ok-2</id><image_link>https://cdn.example.com/2.jpg</image_link></entry>
</feed>`

	result, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(result.Products))
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("got %d skipped, want 2", len(result.Skipped))
	}
	if result.Skipped[0].Index != 1 || result.Skipped[0].Reason != "missing product id" {
		t.Fatalf("unexpected first skip: %+v", result.Skipped[0])
	}
	if result.Skipped[1].Index != 2 || result.Skipped[1].Reason != "missing image link" {
		t.Fatalf("unexpected second skip: %+v", result.Skipped[1])
	}
}

func TestParseIgnoresUnknownElements(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>x</id>
    <price>19.99</price>
    <availability>in stock</availability>
    <image_link>https://cdn.example.com/x.jpg</image_link>
    <nested><deeply><id>decoy</id></deeply></nested>
  </entry>
</feed>`

	result, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Products) != 1 || result.Products[0].ID != "x" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseFieldSplitAcrossTextChunks(t *testing.T) {
	// CDATA sections and entity references make the decoder deliver a
	// field's text in several chunks; the parser must join them.
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>AB<![CDATA[&]]>CD</id>
    <title>Salt &amp; Pepper<![CDATA[ Set]]></title>
    <image_link>https://cdn.example.com/a<![CDATA[?size=large&amp=1]]></image_link>
  </entry>
</feed>`

	result, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Products) != 1 {
		t.Fatalf("got %d products, want 1", len(result.Products))
	}
	p := result.Products[0]
	if p.ID != "AB&CD" {
		t.Fatalf("id = %q, want %q", p.ID, "AB&CD")
	}
	if p.Title != "Salt & Pepper Set" {
		t.Fatalf("title = %q, want %q", p.Title, "Salt & Pepper Set")
	}
	if p.ImageURL != "https://cdn.example.com/a?size=large&amp=1" {
		t.Fatalf("image_link = %q", p.ImageURL)
	}
}

func TestParseMalformedDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "truncated", doc: `<feed><entry><id>a</id>`},
		{name: "not xml", doc: `{"items": []}`},
		{name: "empty", doc: ``},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.doc)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("Parse = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestParseEmptyFeedIsValid(t *testing.T) {
	result, err := Parse(strings.NewReader(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Products) != 0 || len(result.Skipped) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestParseAllowsDuplicateIDs(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><id>dup</id><image_link>https://cdn.example.com/v1.jpg</image_link></entry>
  <entry><id>dup</id><image_link>https://cdn.example.com/v2.jpg</image_link></entry>
</feed>`

	result, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// The parser makes no uniqueness promise; duplicates are the
	// orchestrator's concern.
	if len(result.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(result.Products))
	}
}
