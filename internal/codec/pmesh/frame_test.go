package pmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		hopCount int
		hopPath  []byte
		payload  []byte
	}{
		{"direct destination", 0, []byte{0xA3, 0x53, 0x54, 0x35}, []byte{0x2B, 0x07, 0x01, 0x0E, 0x00, 0x00, 0x00, 0x40}},
		{"two hops", 2, []byte{0x01, 0x02, 0x03, 0x04, 0xA3, 0x53, 0x54, 0x35}, []byte{0x2B, 0x07, 0x01, 0x0E}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			panID := [4]byte{0x01, 0x02, 0x03, 0x04}
			srcAddr := [4]byte{0x3C, 0xC1, 0xF6, 0x01}

			frame, err := Build(PacketDataQuery, panID, srcAddr, tc.hopCount, tc.hopPath, tc.payload, true)
			require.NoError(t, err)

			view, err := Parse(frame, true)
			require.NoError(t, err)

			assert.Equal(t, StartGateway, view.Start)
			assert.Equal(t, PacketDataQuery, view.PacketType)
			assert.Equal(t, panID, view.PanID)
			assert.Equal(t, srcAddr, view.SourceAddr)
			assert.Equal(t, tc.hopCount, view.HopCount)
			assert.Equal(t, tc.hopPath, view.HopPath)
			assert.Equal(t, tc.payload, view.Payload)
		})
	}
}

func TestTotalLengthInvariant(t *testing.T) {
	panID := [4]byte{}
	srcAddr := [4]byte{}
	payload := []byte{0xAA, 0xBB, 0xCC}

	for h := 0; h <= 10; h++ {
		pathLen := h * 4
		if h == 0 {
			pathLen = 4
		}
		hopPath := make([]byte, pathLen)

		frame, err := Build(PacketDataQuery, panID, srcAddr, h, hopPath, payload, true)
		require.NoError(t, err)

		want := 13 + pathLen + len(payload) + 1
		assert.Equal(t, want, len(frame), "hop-count %d", h)
	}
}

func TestParseBadChecksum(t *testing.T) {
	frame, err := Build(PacketDataQuery, [4]byte{}, [4]byte{}, 0, []byte{1, 2, 3, 4}, []byte{0x01}, true)
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0xFF

	_, err = Parse(frame, true)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, ErrBadChecksum, parseErr.Kind)
}

func TestParseLengthMismatch(t *testing.T) {
	frame, err := Build(PacketDataQuery, [4]byte{}, [4]byte{}, 0, []byte{1, 2, 3, 4}, []byte{0x01}, true)
	require.NoError(t, err)

	frame[1] = 0xFF

	_, err = Parse(frame, true)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, ErrLengthMismatch, parseErr.Kind)
}
