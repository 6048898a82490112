package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfmesh/hes/internal/mqttctl"
	"github.com/rfmesh/hes/internal/store/models"
	"github.com/rfmesh/hes/internal/transactor"
)

func TestDecodeDestPathSingleHop(t *testing.T) {
	// 4-byte gateway prefix + 1 hop group of 4 bytes.
	path, err := decodeDestPath(1, "3CC1F60100000045")
	require.NoError(t, err)
	assert.Equal(t, 1, path.HopCount)
	require.Len(t, path.Hops, 1)
	assert.Equal(t, [4]byte{0x00, 0x00, 0x00, 0x45}, path.Hops[0])
}

func TestDecodeDestPathMultiHop(t *testing.T) {
	// gateway prefix + 2 hop groups.
	path, err := decodeDestPath(2, "3CC1F601000000450000AABB")
	require.NoError(t, err)
	assert.Equal(t, 2, path.HopCount)
	require.Len(t, path.Hops, 2)
	assert.Equal(t, [4]byte{0x00, 0x00, 0x00, 0x45}, path.Hops[0])
	assert.Equal(t, [4]byte{0x00, 0x00, 0xAA, 0xBB}, path.Hops[1])
}

func TestDecodeDestPathRejectsBadHex(t *testing.T) {
	_, err := decodeDestPath(1, "not-hex")
	assert.Error(t, err)
}

func TestDecodeDestPathRejectsLengthMismatch(t *testing.T) {
	_, err := decodeDestPath(2, "3CC1F60100000045")
	assert.Error(t, err)
}

func TestMacFromDestPathUsesFinalHop(t *testing.T) {
	mac, err := macFromDestPath(2, "3CC1F601000000450000AABB")
	require.NoError(t, err)
	assert.Equal(t, "0000aabb", mac)
}

func TestMacFromDestPathRejectsBadInput(t *testing.T) {
	_, err := macFromDestPath(1, "zz")
	assert.Error(t, err)
}

func TestDecodeCommandHex(t *testing.T) {
	frameID, cmd, sub, payload, err := decodeCommandHex("2F0606AABBCC")
	require.NoError(t, err)
	assert.Equal(t, byte(0x2F), frameID)
	assert.Equal(t, byte(0x06), cmd)
	assert.Equal(t, byte(0x06), sub)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, payload)
}

func TestDecodeCommandHexNoPayload(t *testing.T) {
	frameID, cmd, sub, payload, err := decodeCommandHex("2F0606")
	require.NoError(t, err)
	assert.Equal(t, byte(0x2F), frameID)
	assert.Equal(t, byte(0x06), cmd)
	assert.Equal(t, byte(0x06), sub)
	assert.Empty(t, payload)
}

func TestDecodeCommandHexRejectsTooShort(t *testing.T) {
	_, _, _, _, err := decodeCommandHex("2F06")
	assert.Error(t, err)
}

func TestRequestStatusFor(t *testing.T) {
	cases := []struct {
		state transactor.State
		want  models.RequestStatus
	}{
		{transactor.StateSuccess, models.RequestStatusSuccess},
		{transactor.StateNextPage, models.RequestStatusSuccess},
		{transactor.StateRetryTimeout, models.RequestStatusFailedRFTimeout},
		{transactor.StatePollTimeout, models.RequestStatusFailedRFTimeout},
		{transactor.StateDlmsChecksumError, models.RequestStatusFailedChecksum},
		{transactor.StateInvalidResponse, models.RequestStatusFailedInvalidResponse},
		{transactor.StateDlmsConnectionFailed, models.RequestStatusFailedDlmsConnection},
		{transactor.StatePmeshError, models.RequestStatusFailedMeshProtocol},
		{transactor.StateCancelled, models.RequestStatusCancelled},
	}
	for _, c := range cases {
		got, code := requestStatusFor(c.state)
		assert.Equal(t, c.want, got)
		assert.Nil(t, code)
	}
}

func TestRequestRowForDerivesTargetMAC(t *testing.T) {
	cmd := &mqttctl.Command{
		RequestID:    "req-1",
		HopCount:     1,
		DestPathHex:  "3CC1F60100000045",
		DownloadType: "ODM",
		CommandHex:   "2F0606",
	}

	row := requestRowFor("gw-1", cmd)

	assert.Equal(t, "req-1", row.RequestID)
	assert.Equal(t, "gw-1", row.GatewayID)
	assert.Equal(t, "00000045", row.TargetMAC)
	assert.Equal(t, models.RequestStatusRequested, row.Status)
}

func TestRequestRowForFallsBackToRawHexOnDecodeFailure(t *testing.T) {
	cmd := &mqttctl.Command{
		RequestID:   "req-2",
		HopCount:    1,
		DestPathHex: "zz",
		CommandHex:  "2F0606",
	}

	row := requestRowFor("gw-1", cmd)

	assert.Equal(t, "zz", row.TargetMAC)
}
