package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// EventKind enumerates the seven event sub-commands parse_events handles.
type EventKind byte

const (
	EventPowerFail EventKind = iota
	EventPowerRestore
	EventVoltageLow
	EventVoltageHigh
	EventCurrentOver
	EventTamper
	EventProgramming
)

// Event is one decoded event record: the EventDataIndex the meter
// reported it under, and its concrete field values.
type Event struct {
	Kind      EventKind
	DataIndex byte
	Fields    []dlms.Value
}

// EventsParser decodes the events profile. It never pages.
type EventsParser struct{}

func (EventsParser) Kind() Kind    { return KindEvents }
func (EventsParser) FrameID() byte { return FrameInstantData }
func (EventsParser) Command() byte { return CommandEvents }

func (EventsParser) HasNextPage(frame *dlms.Frame) bool     { return false }
func (EventsParser) NextPageRequest(original []byte) []byte { return original }

// ParseEvents decodes every event-kind sub-command present in frame's
// records: a record whose DataIndex names one of the seven event kinds
// (0..6) becomes one Event with that EventDataIndex; records with any
// other DataIndex are skipped.
func ParseEvents(frame *dlms.Frame) []Event {
	events := make([]Event, 0, len(frame.Records))
	for _, rec := range frame.Records {
		if rec.DataIndex > byte(EventProgramming) {
			continue
		}
		events = append(events, Event{
			Kind:      EventKind(rec.DataIndex),
			DataIndex: rec.DataIndex,
			Fields:    []dlms.Value{rec.Value},
		})
	}
	return events
}
