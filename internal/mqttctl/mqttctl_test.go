package mqttctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchOrdinaryODMCommand(t *testing.T) {
	raw := "1001:GW0000000000001:0:3CC1F60100000045:5:2F0606"
	out, err := ParseBatch(raw, "GW0000000000001")
	require.NoError(t, err)
	require.Len(t, out, 1)

	cmd, ok := out[0].(*Command)
	require.True(t, ok)
	assert.Equal(t, "1001", cmd.RequestID)
	assert.Equal(t, 0, cmd.HopCount)
	assert.Equal(t, ClassODM, cmd.Class())
}

func TestParseBatchMultipleCommandsDashSeparated(t *testing.T) {
	raw := "1001:GW0000000000001:0:3CC1F60100000045:5:2F0606-1002:GW0000000000001:0:3CC1F60100000045:6:2D0807"
	out, err := ParseBatch(raw, "GW0000000000001")
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestParseBatchRejectsBadGatewayID(t *testing.T) {
	raw := "1001:OTHERGATEWAY0000:0:3CC1F60100000045:5:2F0606"
	_, err := ParseBatch(raw, "GW0000000000001")
	require.Error(t, err)
}

func TestParseBatchRejectsWrongDestPathLength(t *testing.T) {
	raw := "1001:GW0000000000001:1:3CC1F60100000045:5:2F0606" // hop-count 1 needs 32 hex chars
	_, err := ParseBatch(raw, "GW0000000000001")
	require.Error(t, err)
}

func TestParseBatchCancelCommand(t *testing.T) {
	out, err := ParseBatch("CANCEL:1001:1002", "GW0000000000001")
	require.NoError(t, err)
	require.Len(t, out, 1)

	cancel, ok := out[0].(*CancelCommand)
	require.True(t, ok)
	assert.Equal(t, []string{"1001", "1002"}, cancel.RequestIDs)
}

func TestParseBatchSpecialClassWithPingFields(t *testing.T) {
	raw := "1001:GW0000000000001:0:3CC1F60100000045:13:2F0606:5:30"
	out, err := ParseBatch(raw, "GW0000000000001")
	require.NoError(t, err)
	cmd := out[0].(*Command)
	assert.Equal(t, ClassSpecial, cmd.Class())
	assert.Equal(t, 5, cmd.PingCount)
	assert.Equal(t, 30, cmd.PingInterval)
}

func TestParseBatchFuotaClassWithFirmwareFields(t *testing.T) {
	raw := "1001:GW0000000000001:0:3CC1F60100000045:27:2F0606:/base/FUOTA/RF/GW1:image.bin"
	out, err := ParseBatch(raw, "GW0000000000001")
	require.NoError(t, err)
	cmd := out[0].(*Command)
	assert.Equal(t, ClassFUOTA, cmd.Class())
	assert.Equal(t, "/base/FUOTA/RF/GW1", cmd.FirmwarePath)
	assert.Equal(t, "image.bin", cmd.FirmwareFilename)
}

func TestParseBatchFuotaClassWithoutFirmwareFieldsFails(t *testing.T) {
	raw := "1001:GW0000000000001:0:3CC1F60100000045:27:2F0606"
	_, err := ParseBatch(raw, "GW0000000000001")
	require.Error(t, err)
}

func TestDedupRejectsRepeatWithinWindow(t *testing.T) {
	d := NewDedup()
	assert.True(t, d.Admit(ClassODM, "1"))
	assert.True(t, d.Admit(ClassODM, "2"))
	assert.False(t, d.Admit(ClassODM, "1")) // still within the last-two window
	assert.True(t, d.Admit(ClassODM, "3"))
	assert.True(t, d.Admit(ClassODM, "1")) // "1" has aged out of the window now
}

func TestDedupIsPerClass(t *testing.T) {
	d := NewDedup()
	assert.True(t, d.Admit(ClassODM, "1"))
	assert.True(t, d.Admit(ClassFUOTA, "1")) // same id, different class: independent window
}

func TestCancelSetDrainClearsSet(t *testing.T) {
	cs := NewCancelSet()
	assert.False(t, cs.NonEmpty())
	cs.Add("10", "11")
	assert.True(t, cs.NonEmpty())
	assert.True(t, cs.Contains("10"))

	drained := cs.Drain()
	assert.ElementsMatch(t, []string{"10", "11"}, drained)
	assert.False(t, cs.NonEmpty())
}

func TestODMQueueFIFO(t *testing.T) {
	q := NewODMQueue()
	q.Enqueue(&Command{RequestID: "1"})
	q.Enqueue(&Command{RequestID: "2"})

	first, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "1", first.RequestID)
	assert.Equal(t, 1, q.Len())
}

func TestHashAndVerifyBrokerPassword(t *testing.T) {
	hash, err := HashBrokerPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, VerifyBrokerPassword(hash, "s3cret"))
	assert.False(t, VerifyBrokerPassword(hash, "wrong"))
}
