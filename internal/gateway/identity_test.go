package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGatewayID(t *testing.T) {
	panID, sourceAddr, err := decodeGatewayID("3CC1F60100000045")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0x3C, 0xC1, 0xF6, 0x01}, panID)
	assert.Equal(t, [4]byte{0x00, 0x00, 0x00, 0x45}, sourceAddr)
}

func TestDecodeGatewayIDRejectsNonHex(t *testing.T) {
	_, _, err := decodeGatewayID("not-hex-at-all!!")
	assert.Error(t, err)
}

func TestDecodeGatewayIDRejectsWrongLength(t *testing.T) {
	_, _, err := decodeGatewayID("AABB")
	assert.Error(t, err)
}
