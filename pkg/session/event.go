package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType names the kind of a session event.
type EventType string

// Known event types.
const (
	EventClick      EventType = "click"
	EventFormSubmit EventType = "form_submit"
	EventScroll     EventType = "scroll"
	EventPageView   EventType = "page_view"
	EventSearch     EventType = "search"
	EventRating     EventType = "rating"
	EventFavorite   EventType = "favorite"
	EventWatchlist  EventType = "watchlist"
	EventCustom     EventType = "custom"
)

// Known reports whether t is one of the known event types.
func (t EventType) Known() bool {
	switch t {
	case EventClick, EventFormSubmit, EventScroll, EventPageView, EventSearch,
		EventRating, EventFavorite, EventWatchlist, EventCustom:
		return true
	}
	return false
}

// Payload is the typed detail of an event. Each known event type has its
// own payload; OtherPayload carries anything else verbatim.
type Payload interface {
	Kind() EventType
}

// Event is one interaction within a session.
//
// On disk an event is a flat object with the keys type, timestamp, page,
// element, data, scrollDepth and formData. A form_submit payload is stored
// under formData, every other payload under data.
type Event struct {
	Type EventType

	// Timestamp is epoch milliseconds.
	Timestamp int64

	Page        string
	Element     string
	ScrollDepth *float64

	// Payload may be nil.
	Payload Payload
}

// Validate checks that the event has a type and that its payload matches.
func (e Event) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	if e.Payload == nil {
		return nil
	}
	if _, ok := e.Payload.(OtherPayload); ok {
		return nil
	}
	if e.Payload.Kind() != e.Type {
		return fmt.Errorf("%w: %s payload on %s event", ErrInvalidEvent, e.Payload.Kind(), e.Type)
	}
	return nil
}

// ClickPayload describes a click.
type ClickPayload struct {
	Text string `json:"text,omitempty"`
	Href string `json:"href,omitempty"`
}

// FormSubmitPayload describes a submitted form.
type FormSubmitPayload struct {
	FormID string            `json:"formId,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ScrollPayload describes a scroll.
type ScrollPayload struct {
	Direction string `json:"direction,omitempty"`
}

// PageViewPayload describes a page view.
type PageViewPayload struct {
	Title    string `json:"title,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// SearchPayload describes a search.
type SearchPayload struct {
	Query   string `json:"query"`
	Results *int   `json:"results,omitempty"`
}

// RatingPayload describes a rating given to a movie.
type RatingPayload struct {
	MovieID int64   `json:"movieId,omitempty"`
	Rating  float64 `json:"rating"`
}

// FavoritePayload describes a favorite toggle.
type FavoritePayload struct {
	MovieID int64 `json:"movieId,omitempty"`
	Added   bool  `json:"added"`
}

// WatchlistPayload describes a watchlist toggle.
type WatchlistPayload struct {
	MovieID int64 `json:"movieId,omitempty"`
	Added   bool  `json:"added"`
}

// CustomPayload describes an application-defined event.
type CustomPayload struct {
	Name       string            `json:"name,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// OtherPayload keeps event detail that does not fit a typed payload:
// unknown event types, or known types whose stored detail has another shape.
type OtherPayload struct {
	Type     EventType
	Data     json.RawMessage
	FormData json.RawMessage
}

func (ClickPayload) Kind() EventType      { return EventClick }
func (FormSubmitPayload) Kind() EventType { return EventFormSubmit }
func (ScrollPayload) Kind() EventType     { return EventScroll }
func (PageViewPayload) Kind() EventType   { return EventPageView }
func (SearchPayload) Kind() EventType     { return EventSearch }
func (RatingPayload) Kind() EventType     { return EventRating }
func (FavoritePayload) Kind() EventType   { return EventFavorite }
func (WatchlistPayload) Kind() EventType  { return EventWatchlist }
func (CustomPayload) Kind() EventType     { return EventCustom }
func (p OtherPayload) Kind() EventType    { return p.Type }

// eventJSON is the on-disk shape of an Event.
type eventJSON struct {
	Type        EventType       `json:"type"`
	Timestamp   int64           `json:"timestamp"`
	Page        string          `json:"page"`
	Element     string          `json:"element,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	ScrollDepth *float64        `json:"scrollDepth,omitempty"`
	FormData    json.RawMessage `json:"formData,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Type:        e.Type,
		Timestamp:   e.Timestamp,
		Page:        e.Page,
		Element:     e.Element,
		ScrollDepth: e.ScrollDepth,
	}

	switch p := e.Payload.(type) {
	case nil:
	case OtherPayload:
		out.Data = p.Data
		out.FormData = p.FormData
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", e.Type, err)
		}
		if e.Type == EventFormSubmit {
			out.FormData = raw
		} else {
			out.Data = raw
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Payload detail that cannot be
// decoded into the typed payload of its event type is kept as OtherPayload,
// so reading a shard never drops data.
func (e *Event) UnmarshalJSON(b []byte) error {
	var in eventJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*e = Event{
		Type:        in.Type,
		Timestamp:   in.Timestamp,
		Page:        in.Page,
		Element:     in.Element,
		ScrollDepth: in.ScrollDepth,
	}

	data, formData := nonNull(in.Data), nonNull(in.FormData)
	if data == nil && formData == nil {
		return nil
	}

	other := OtherPayload{Type: in.Type, Data: data, FormData: formData}

	// A known type uses exactly one slot; anything in the other slot would
	// be lost by a typed payload.
	slot, spare := data, formData
	if in.Type == EventFormSubmit {
		slot, spare = formData, data
	}
	if !in.Type.Known() || slot == nil || spare != nil {
		e.Payload = other
		return nil
	}

	p, err := decodePayload(in.Type, slot)
	if err != nil {
		e.Payload = other
		return nil
	}
	e.Payload = p
	return nil
}

func decodePayload(t EventType, raw json.RawMessage) (Payload, error) {
	dec := func(v any) error {
		d := json.NewDecoder(bytes.NewReader(raw))
		d.DisallowUnknownFields()
		return d.Decode(v)
	}

	switch t {
	case EventClick:
		var p ClickPayload
		err := dec(&p)
		return p, err
	case EventFormSubmit:
		var p FormSubmitPayload
		err := dec(&p)
		return p, err
	case EventScroll:
		var p ScrollPayload
		err := dec(&p)
		return p, err
	case EventPageView:
		var p PageViewPayload
		err := dec(&p)
		return p, err
	case EventSearch:
		var p SearchPayload
		err := dec(&p)
		return p, err
	case EventRating:
		var p RatingPayload
		err := dec(&p)
		return p, err
	case EventFavorite:
		var p FavoritePayload
		err := dec(&p)
		return p, err
	case EventWatchlist:
		var p WatchlistPayload
		err := dec(&p)
		return p, err
	case EventCustom:
		var p CustomPayload
		err := dec(&p)
		return p, err
	}
	return nil, fmt.Errorf("%w: unknown type %s", ErrInvalidEvent, t)
}

func nonNull(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}
