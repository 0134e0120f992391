package engine

import "auction_display/internal/record"

// SlideKind tags the two slide variants.
type SlideKind int

const (
	SlideItem SlideKind = iota
	SlideTable
)

func (k SlideKind) String() string {
	if k == SlideTable {
		return "table"
	}
	return "item"
}

// Slide is one unit of playback: a single item with its image handle, or a
// standings table carrying the full open row set.
type Slide struct {
	Kind   SlideKind
	Record record.Record   // item slides
	Image  string          // item slides; "" renders the no-image placeholder
	Rows   []record.Record // table slides
}

// Resolver maps an item identifier to a displayable image handle.
type Resolver interface {
	Resolve(id string) (string, bool)
}

// BuildSlides turns open records into the playback sequence: one item slide
// per record, and after every itemsPerTable-th item slide a table slide
// listing the entire open set. The repeated full listing is deliberate; the
// standings table always shows everything, not the last few items.
func BuildSlides(rows []record.Record, images Resolver, itemsPerTable int) []Slide {
	var out []Slide
	count := 0
	for _, r := range rows {
		slide := Slide{Kind: SlideItem, Record: r}
		if handle, ok := images.Resolve(r.Item()); ok {
			slide.Image = handle
		}
		out = append(out, slide)
		count++
		if count%itemsPerTable == 0 {
			out = append(out, Slide{Kind: SlideTable, Rows: rows})
		}
	}
	return out
}

// Paginate splits rows into contiguous pages of at most pageSize rows.
func Paginate(rows []record.Record, pageSize int) [][]record.Record {
	var pages [][]record.Record
	for start := 0; start < len(rows); start += pageSize {
		end := start + pageSize
		if end > len(rows) {
			end = len(rows)
		}
		pages = append(pages, rows[start:end])
	}
	return pages
}
