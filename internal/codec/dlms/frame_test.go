package dlms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	payload := []byte{0xAA, 0xBB}
	frame := Build(0x01, 0x0E, 0x00, 0x00, payload)

	view, err := Parse(frame, Request)
	require.NoError(t, err)
	assert.Equal(t, StartRequest, view.Start)
	assert.Equal(t, byte(0x01), view.PageIndex)
	assert.Equal(t, byte(0x0E), view.FrameID)
}

func TestRecalculateChecksumScenarioC(t *testing.T) {
	frame := []byte{0x2B, 0x07, 0x01, 0x0E, 0x00, 0x00, 0x00, 0x00}
	RecalculateChecksum(frame)
	assert.Equal(t, byte(0x41), frame[len(frame)-1])
}

func TestRecalculateChecksumIdempotent(t *testing.T) {
	frame := Build(0x01, 0x0E, 0x00, 0x00, []byte{0x01, 0x02, 0x03})
	before := append([]byte(nil), frame...)

	RecalculateChecksum(frame)
	assert.Equal(t, before, frame)
}

func TestParseLengthMismatch(t *testing.T) {
	frame := Build(0x01, 0x0E, 0x00, 0x00, []byte{0x01})
	frame[1] = 0xFF

	_, err := Parse(frame, Request)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, ErrLengthMismatch, parseErr.Kind)
}

func TestWalkRecords(t *testing.T) {
	// one fixed-width uint16 record (data-index 1) followed by one
	// octet-string record (data-index 2, length-prefixed).
	payload := []byte{
		0x01, 0x00, 0x07, 0x00, 0x2A, // uint16 record: index=1, status=0, type=uint16, value=0x002A
		0x02, 0x00, 0x0D, 0x03, 0xDE, 0xAD, 0xBE, // octet-string record: index=2, status=0, type=octet-string, len=3, value
	}
	frame := Build(0x00, 0x0E, 0x00, 0x00, payload)

	view, err := Parse(frame, Request)
	require.NoError(t, err)
	require.Len(t, view.Records, 2)

	assert.Equal(t, byte(1), view.Records[0].DataIndex)
	assert.Equal(t, uint16(0x002A), view.Records[0].Value.Uint16())

	assert.Equal(t, byte(2), view.Records[1].DataIndex)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE}, view.Records[1].Value.OctetString())
}
