package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMarshal_PayloadSlot(t *testing.T) {
	depth := 0.75

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name: "form submit goes to formData",
			event: Event{
				Type: EventFormSubmit, Timestamp: 1, Page: "/contact", Element: "#contact",
				Payload: FormSubmitPayload{FormID: "contact", Fields: map[string]string{"email": "a@b.c"}},
			},
			want: `{"type":"form_submit","timestamp":1,"page":"/contact","element":"#contact",
				"formData":{"formId":"contact","fields":{"email":"a@b.c"}}}`,
		},
		{
			name: "rating goes to data",
			event: Event{
				Type: EventRating, Timestamp: 2, Page: "/movies/550",
				Payload: RatingPayload{MovieID: 550, Rating: 4.5},
			},
			want: `{"type":"rating","timestamp":2,"page":"/movies/550","data":{"movieId":550,"rating":4.5}}`,
		},
		{
			name:  "scroll without payload",
			event: Event{Type: EventScroll, Timestamp: 3, Page: "/", ScrollDepth: &depth},
			want:  `{"type":"scroll","timestamp":3,"page":"/","scrollDepth":0.75}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))

			var back Event
			require.NoError(t, json.Unmarshal(raw, &back))
			assert.Equal(t, tt.event, back)
		})
	}
}

func TestEventUnmarshal_KeepsUnknownDetail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"type":"share","timestamp":1,"page":"/","data":{"network":"x"}}`},
		{"known type, other shape", `{"type":"click","timestamp":1,"page":"/","data":{"x":10,"y":20}}`},
		{"known type, scalar data", `{"type":"search","timestamp":1,"page":"/","data":"dune"}`},
		{"both slots", `{"type":"click","timestamp":1,"page":"/","data":{"text":"a"},"formData":{"f":"1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ev))

			_, ok := ev.Payload.(OtherPayload)
			assert.True(t, ok, "payload = %T, want OtherPayload", ev.Payload)
			assert.NoError(t, ev.Validate())

			out, err := json.Marshal(ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.raw, string(out))
		})
	}
}

func TestEventUnmarshal_NullData(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"click","timestamp":1,"page":"/","data":null}`), &ev))
	assert.Nil(t, ev.Payload)
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"typed payload", Event{Type: EventSearch, Payload: SearchPayload{Query: "dune"}}, false},
		{"no payload", Event{Type: EventPageView}, false},
		{"custom type with opaque payload", Event{Type: "share", Payload: OtherPayload{Type: "share"}}, false},
		{"missing type", Event{Payload: ClickPayload{}}, true},
		{"mismatched payload", Event{Type: EventFavorite, Payload: WatchlistPayload{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEvent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
