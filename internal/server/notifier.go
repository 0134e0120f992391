package server

import (
	"auction_display/internal/engine"
	"auction_display/internal/record"
)

// HubNotifier adapts engine notifications into hub events.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) OnSlideChanged(index, total int, slide engine.Slide) {
	event := Event{
		Type:  "slide",
		Index: index,
		Total: total,
		Kind:  slide.Kind.String(),
	}
	if slide.Kind == engine.SlideItem {
		event.Record = slide.Record
		event.Image = slide.Image
	}
	n.hub.Broadcast(event)
}

func (n *HubNotifier) OnTablePage(page, totalPages int, rows []record.Record) {
	event := Event{
		Type:       "table_page",
		Page:       page,
		TotalPages: totalPages,
		Rows:       make([]map[string]string, len(rows)),
	}
	for i, r := range rows {
		event.Rows[i] = r
	}
	n.hub.Broadcast(event)
}

func (n *HubNotifier) OnRowHighlighted(row int) {
	n.hub.Broadcast(Event{Type: "row", Row: row})
}

func (n *HubNotifier) OnEmpty() {
	n.hub.Broadcast(Event{Type: "empty"})
}

func (n *HubNotifier) OnStopped() {
	n.hub.Broadcast(Event{Type: "stopped"})
}
