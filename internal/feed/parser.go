// Package feed retrieves and parses XML product feeds. Parsing is deliberately
// forgiving at the item level: a product missing its id or image link is
// skipped and recorded, never fatal to the document.
package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrMalformed   = errors.New("feed document malformed")
	ErrUnavailable = errors.New("feed unavailable")
)

// Product is one feed item. Transient: it lives for the duration of a single
// bulk run or preview and is never persisted on its own.
type Product struct {
	ID       string
	ImageURL string
	Title    string
}

// SkippedItem records a feed entry that could not produce a Product.
type SkippedItem struct {
	Index  int
	Reason string
}

// Result is the outcome of parsing one feed document. Products keeps the
// document order. Duplicate ids are possible here; deduplication is the
// orchestrator's concern.
type Result struct {
	Products []Product
	Skipped  []SkippedItem
}

// Parse reads an Atom or RSS document from r. Entries are matched by local
// element name regardless of namespace, so Google Merchant style feeds with
// <g:id> and <g:image_link> parse the same as plain ones. Unknown elements
// are ignored.
func Parse(r io.Reader) (Result, error) {
	dec := xml.NewDecoder(r)

	var res Result
	index := 0
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		local := start.Name.Local
		if local != "entry" && local != "item" {
			continue
		}

		product, err := parseEntry(dec, start)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch {
		case product.ID == "":
			res.Skipped = append(res.Skipped, SkippedItem{Index: index, Reason: "missing product id"})
		case product.ImageURL == "":
			res.Skipped = append(res.Skipped, SkippedItem{Index: index, Reason: "missing image link"})
		default:
			res.Products = append(res.Products, product)
		}
		index++
	}

	if !sawRoot {
		return Result{}, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	return res, nil
}

// parseEntry consumes one entry/item element and collects the fields we care
// about by local name. Character data arrives in chunks (CDATA sections and
// entity references split it), so each field accumulates until its element
// closes.
func parseEntry(dec *xml.Decoder, start xml.StartElement) (Product, error) {
	var p Product
	depth := 1
	var field string
	var text strings.Builder

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return Product{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				switch t.Name.Local {
				case "id", "image_link", "title":
					field = t.Name.Local
				default:
					field = ""
				}
				text.Reset()
			}
		case xml.CharData:
			if depth == 2 && field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			depth--
			if depth == 1 {
				if value := strings.TrimSpace(text.String()); value != "" {
					switch field {
					case "id":
						p.ID = value
					case "image_link":
						p.ImageURL = value
					case "title":
						p.Title = value
					}
				}
				field = ""
			}
		}
	}
	return p, nil
}
