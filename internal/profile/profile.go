// Package profile decodes the DLMS typed-record sequences of the seven
// profile kinds into keyed buffers, and implements the transactor's
// PageInspector seam for the three profile kinds that page.
package profile

import (
	"fmt"
	"time"

	"github.com/rfmesh/hes/internal/codec/dlms"
)

// Kind identifies one of the seven profile bundles the engine pulls.
type Kind int

const (
	KindNameplate Kind = iota
	KindInstantaneous
	KindBilling
	KindDailyLoad
	KindBlockLoad
	KindEvents
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindNameplate:
		return "Nameplate"
	case KindInstantaneous:
		return "Instantaneous"
	case KindBilling:
		return "Billing"
	case KindDailyLoad:
		return "DailyLoad"
	case KindBlockLoad:
		return "BlockLoad"
	case KindEvents:
		return "Events"
	case KindScalar:
		return "Scalar"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Frame-ID values from the §4.4 dispatch table.
const (
	FrameInstantData byte = 0x0E
	FrameScalarList  byte = 0x0A
	FrameSingleOBIS  byte = 0x0F
	FrameCacheData   byte = 0x0C
)

// Command values carried alongside FrameInstantData / FrameCacheData.
const (
	CommandNameplate     byte = 0
	CommandInstantaneous byte = 1
	CommandBilling       byte = 2
	CommandDailyLoad     byte = 3
	CommandBlockLoad     byte = 4
	CommandEvents        byte = 8
)

// Dispatch maps a response's frame-id/command pair to the profile kind it
// belongs to, per §4.4's dispatch table.
func Dispatch(frameID, command byte) (Kind, bool) {
	switch frameID {
	case FrameInstantData, FrameCacheData:
		switch command {
		case CommandNameplate:
			return KindNameplate, true
		case CommandInstantaneous:
			return KindInstantaneous, true
		case CommandBilling:
			return KindBilling, true
		case CommandDailyLoad:
			return KindDailyLoad, true
		case CommandBlockLoad:
			return KindBlockLoad, true
		case CommandEvents:
			return KindEvents, true
		}
	case FrameScalarList:
		return KindScalar, true
	}
	return 0, false
}

// Buffer accumulates one profile's decoded records, keyed by data-index,
// across one or more paged DLMS responses for a single node and cycle —
// the Go expression of ProfileBuffer<K> from spec.md §3.
type Buffer struct {
	Kind         Kind
	Records      map[byte][]dlms.Value
	LastPacketAt time.Time
	PacketCount  int
}

// NewBuffer returns an empty buffer for kind.
func NewBuffer(kind Kind) *Buffer {
	return &Buffer{Kind: kind, Records: make(map[byte][]dlms.Value)}
}

// Append appends frame's records into the buffer and advances its
// packet-count/timestamp bookkeeping.
func (b *Buffer) Append(frame *dlms.Frame, at time.Time) {
	for _, rec := range frame.Records {
		b.Records[rec.DataIndex] = append(b.Records[rec.DataIndex], rec.Value)
	}
	b.LastPacketAt = at
	b.PacketCount++
}

// rewriteTail implements the §4.4 paging rewrite rule: truncate the last n
// bytes of a DLMS request payload and substitute the profile's fixed
// 8-byte "next-page fetch" template.
func rewriteTail(original []byte, truncate int, template [8]byte) []byte {
	if truncate > len(original) {
		truncate = len(original)
	}
	out := make([]byte, 0, len(original)-truncate+len(template))
	out = append(out, original[:len(original)-truncate]...)
	return append(out, template[:]...)
}

// nextPageIndicatorIndex is the engine's own convention for the trailing
// "more pages follow" bit in a paged response: the final record carries
// this data-index with a bool value. The wire format doesn't name the bit
// explicitly; see DESIGN.md for why this index was chosen.
const nextPageIndicatorIndex byte = 0xFE

func hasMoreRecords(frame *dlms.Frame) bool {
	for _, rec := range frame.Records {
		if rec.DataIndex == nextPageIndicatorIndex {
			return rec.Value.Bool()
		}
	}
	return false
}
