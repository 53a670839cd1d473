// Package wire decodes and encodes the JSON-array message frames of the
// relay protocol: it decodes EVENT, REQ and CLOSE client frames and
// encodes the OK, NOTICE and CLOSED frames the proxy itself sends.
// Upstream frames (EVENT, EOSE, NOTICE) are passed to the client as raw
// bytes and not re-encoded. The session state machine is the only consumer.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/relayguard/relayguard/internal/eventview"
	"github.com/relayguard/relayguard/internal/npub"
)

// Event is the wire shape of a signed relay event, before it is lifted
// into the read-only eventview.View the filtering core evaluates against.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int64      `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// View lifts the wire event into the evaluator's read-only shape. npub
// encoding failures (a malformed pubkey) leave Npub empty rather than
// aborting decode — a downstream npub-typed rule compares against the
// empty string.
func (e Event) View() eventview.View {
	n, _ := npub.FromHex(e.PubKey)
	return eventview.View{
		ID:        e.ID,
		PubkeyHex: e.PubKey,
		Npub:      n,
		Kind:      e.Kind,
		CreatedAt: e.CreatedAt,
		Content:   e.Content,
		Tags:      buildTagTable(e.Tags),
	}
}

func buildTagTable(tags [][]string) eventview.TagTable {
	t := eventview.TagTable{}
	for _, tag := range tags {
		if len(tag) == 0 || len(tag[0]) != 1 {
			continue
		}
		name := tag[0][0]
		t[name] = append(t[name], tag[1:])
	}
	return t
}

// FrameKind classifies a decoded client frame.
type FrameKind int

const (
	UnknownFrame FrameKind = iota
	EventFrame
	ReqFrame
	CloseFrame
)

// ClientFrame is a decoded inbound client message. Raw retains the
// original bytes so frames can be forwarded upstream unmodified; no frame
// is rewritten — EVENT frames are either forwarded as-is or rejected.
type ClientFrame struct {
	Kind        FrameKind
	SubID       string
	Event       *Event
	FilterKinds []int64
	Raw         []byte
}

type filterKinds struct {
	Kinds []int64 `json:"kinds"`
}

// DecodeClientFrame parses one inbound frame. Frames outside the three
// categories the core acts on (EVENT, REQ, CLOSE) decode as UnknownFrame
// and are forwarded unmodified by the session.
func DecodeClientFrame(raw []byte) (ClientFrame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ClientFrame{}, fmt.Errorf("wire: malformed frame: %w", err)
	}
	if len(parts) == 0 {
		return ClientFrame{}, fmt.Errorf("wire: empty frame")
	}

	var label string
	if err := json.Unmarshal(parts[0], &label); err != nil {
		return ClientFrame{}, fmt.Errorf("wire: frame label: %w", err)
	}

	switch label {
	case "EVENT":
		if len(parts) != 2 {
			return ClientFrame{}, fmt.Errorf("wire: EVENT frame wants exactly one payload element")
		}
		var ev Event
		if err := json.Unmarshal(parts[1], &ev); err != nil {
			return ClientFrame{}, fmt.Errorf("wire: decode event: %w", err)
		}
		return ClientFrame{Kind: EventFrame, Event: &ev, Raw: raw}, nil

	case "REQ":
		if len(parts) < 2 {
			return ClientFrame{}, fmt.Errorf("wire: REQ frame wants a subscription id")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return ClientFrame{}, fmt.Errorf("wire: REQ subscription id: %w", err)
		}
		var kinds []int64
		for _, filterRaw := range parts[2:] {
			var f filterKinds
			if err := json.Unmarshal(filterRaw, &f); err == nil {
				kinds = append(kinds, f.Kinds...)
			}
		}
		return ClientFrame{Kind: ReqFrame, SubID: subID, FilterKinds: kinds, Raw: raw}, nil

	case "CLOSE":
		if len(parts) != 2 {
			return ClientFrame{}, fmt.Errorf("wire: CLOSE frame wants exactly one subscription id")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return ClientFrame{}, fmt.Errorf("wire: CLOSE subscription id: %w", err)
		}
		return ClientFrame{Kind: CloseFrame, SubID: subID, Raw: raw}, nil

	default:
		return ClientFrame{Kind: UnknownFrame, Raw: raw}, nil
	}
}

// EncodeOK builds the ["OK", event_id, accepted, message] acknowledgment.
func EncodeOK(eventID string, accepted bool, message string) []byte {
	b, _ := json.Marshal([]interface{}{"OK", eventID, accepted, message})
	return b
}

// EncodeNotice builds the ["NOTICE", message] frame.
func EncodeNotice(message string) []byte {
	b, _ := json.Marshal([]interface{}{"NOTICE", message})
	return b
}

// EncodeClosed builds the ["CLOSED", sub_id, message] frame sent when a
// subscription is rejected or torn down server-side.
func EncodeClosed(subID, message string) []byte {
	b, _ := json.Marshal([]interface{}{"CLOSED", subID, message})
	return b
}

// IsKind1Event reports whether raw upstream bytes are a relay->client
// EVENT frame carrying a kind-1 event, and decodes it if so. Used by the
// session to feed the reference cache.
func IsKind1Event(raw []byte) (Event, bool) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 3 {
		return Event{}, false
	}
	var label string
	if err := json.Unmarshal(parts[0], &label); err != nil || label != "EVENT" {
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal(parts[2], &ev); err != nil {
		return Event{}, false
	}
	return ev, ev.Kind == 1
}
