package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHandshakeFixedWidthForm(t *testing.T) {
	line := []byte("PGWID:3CC1F601000000452 3 1\x00\x00\x00\x00\x00")
	info, err := ParseHandshake(line)
	require.NoError(t, err)
	assert.Equal(t, "3CC1F60100000045", info.GatewayID)
	assert.Equal(t, 2, info.SignalStrength)
	assert.Equal(t, 3, info.ModemType)
	assert.Equal(t, 1, info.LastState)
}

func TestParseHandshakeScenarioAWorkedExample(t *testing.T) {
	// Scenario A's own worked example is longer than the nominal 32 bytes
	// and space-separates trailing decimal fields rather than packing
	// them — see ParseHandshake's doc comment.
	line := []byte("PGWID:3CC1F6010000004501020304 5 3 1")
	info, err := ParseHandshake(line)
	require.NoError(t, err)
	assert.Equal(t, "3CC1F60100000045", info.GatewayID)
	assert.Equal(t, 1020304, info.SignalStrength)
	assert.Equal(t, 5, info.ModemType)
	assert.Equal(t, 3, info.LastState)
}

func TestParseHandshakeMissingTrailingFieldsDefaultToZero(t *testing.T) {
	line := []byte("PGWID:0011223344556677")
	info, err := ParseHandshake(line)
	require.NoError(t, err)
	assert.Equal(t, "0011223344556677", info.GatewayID)
	assert.Equal(t, 0, info.SignalStrength)
	assert.Equal(t, 0, info.ModemType)
	assert.Equal(t, 0, info.LastState)
}

func TestParseHandshakeRejectsMissingPrefix(t *testing.T) {
	_, err := ParseHandshake([]byte("GARBAGE:0011223344556677"))
	assert.Error(t, err)
}

func TestParseHandshakeRejectsTooShort(t *testing.T) {
	_, err := ParseHandshake([]byte("PGWID:0011"))
	assert.Error(t, err)
}

func TestIsPing(t *testing.T) {
	assert.True(t, isPing([]byte("PING")))
	assert.False(t, isPing([]byte("PONG")))
}
