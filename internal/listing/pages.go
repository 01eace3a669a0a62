package listing

import (
	"encoding/json"
	"strconv"
)

// maxPlainPages is the largest page count shown without ellipses.
const maxPlainPages = 5

// PageLink is one entry of a page selector: a page number or an ellipsis.
type PageLink struct {
	Page     int
	Ellipsis bool
}

func (l PageLink) String() string {
	if l.Ellipsis {
		return "..."
	}
	return strconv.Itoa(l.Page)
}

// MarshalJSON renders a page number as a JSON number and an ellipsis as "...".
func (l PageLink) MarshalJSON() ([]byte, error) {
	if l.Ellipsis {
		return json.Marshal("...")
	}
	return json.Marshal(l.Page)
}

// PageNumbers returns the selector entries for current out of total pages.
// Up to five pages are all listed; beyond that only the first, the current and
// the last page are, with an ellipsis standing in for each skipped run.
func PageNumbers(current, total int) []PageLink {
	if total <= 0 {
		return []PageLink{}
	}
	links := make([]PageLink, 0, maxPlainPages)
	if total <= maxPlainPages {
		for i := 1; i <= total; i++ {
			links = append(links, PageLink{Page: i})
		}
		return links
	}

	links = append(links, PageLink{Page: 1})
	if current > 2 {
		links = append(links, PageLink{Ellipsis: true})
	}
	if current > 1 && current < total {
		links = append(links, PageLink{Page: current})
	}
	if current < total-1 {
		links = append(links, PageLink{Ellipsis: true})
	}
	return append(links, PageLink{Page: total})
}
