package profile

import (
	"testing"
	"time"

	"github.com/rfmesh/hes/internal/codec/dlms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchTable(t *testing.T) {
	cases := []struct {
		frameID, command byte
		want             Kind
	}{
		{FrameInstantData, CommandNameplate, KindNameplate},
		{FrameInstantData, CommandInstantaneous, KindInstantaneous},
		{FrameInstantData, CommandBilling, KindBilling},
		{FrameInstantData, CommandDailyLoad, KindDailyLoad},
		{FrameInstantData, CommandBlockLoad, KindBlockLoad},
		{FrameInstantData, CommandEvents, KindEvents},
		{FrameCacheData, CommandInstantaneous, KindInstantaneous},
		{FrameScalarList, 0x00, KindScalar},
	}
	for _, c := range cases {
		kind, ok := Dispatch(c.frameID, c.command)
		require.True(t, ok)
		assert.Equal(t, c.want, kind)
	}

	_, ok := Dispatch(0xFF, 0x00)
	assert.False(t, ok)
}

func TestBufferAppend(t *testing.T) {
	buf := NewBuffer(KindNameplate)
	frame := &dlms.Frame{Records: []dlms.Record{
		{DataIndex: 1, Value: dlms.Uint16Value(42)},
		{DataIndex: 1, Value: dlms.Uint16Value(43)},
	}}
	now := time.Unix(1700000000, 0)
	buf.Append(frame, now)

	require.Len(t, buf.Records[1], 2)
	assert.Equal(t, 1, buf.PacketCount)
	assert.Equal(t, now, buf.LastPacketAt)
}

func TestDailyLoadNextPageRequestRewritesTail(t *testing.T) {
	original := make([]byte, 20+dlpTailTruncate)
	for i := range original {
		original[i] = byte(i)
	}

	var p DailyLoadParser
	rewritten := p.NextPageRequest(original)

	assert.Len(t, rewritten, len(original)-dlpTailTruncate+8)
	assert.Equal(t, dlpNextPageTemplate[:], rewritten[len(rewritten)-8:])
}

func TestHasNextPageReadsIndicatorRecord(t *testing.T) {
	withMore := &dlms.Frame{Records: []dlms.Record{{DataIndex: nextPageIndicatorIndex, Value: dlms.BoolValue(true)}}}
	withoutMore := &dlms.Frame{Records: []dlms.Record{{DataIndex: nextPageIndicatorIndex, Value: dlms.BoolValue(false)}}}

	var p DailyLoadParser
	assert.True(t, p.HasNextPage(withMore))
	assert.False(t, p.HasNextPage(withoutMore))
}

func TestParseEventsKeepsOnlyEventIndices(t *testing.T) {
	frame := &dlms.Frame{Records: []dlms.Record{
		{DataIndex: byte(EventTamper), Value: dlms.Uint8Value(1)},
		{DataIndex: 200, Value: dlms.Uint8Value(0)}, // not an event index
	}}

	events := ParseEvents(frame)
	require.Len(t, events, 1)
	assert.Equal(t, EventTamper, events[0].Kind)
}

func TestDecodePingStatus(t *testing.T) {
	connected := &dlms.Frame{Records: []dlms.Record{{Value: dlms.Uint8Value(1)}}}
	disconnected := &dlms.Frame{Records: []dlms.Record{{Value: dlms.Uint8Value(0)}}}

	assert.Equal(t, PingConnected, DecodePingStatus(connected))
	assert.Equal(t, PingDisconnected, DecodePingStatus(disconnected))
}
