package fuota

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfmesh/hes/internal/codec/dlms"
	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/internal/store/models"
)

// fakeRouteStore builds a pathbook.Book the same way internal/pathbook's own
// tests do, since pathbook exposes no test-only constructor.
type fakeRouteStore struct {
	primary []store.NodeRoute
}

func (f *fakeRouteStore) LoadPrimaryRoutes(ctx context.Context, gatewayID string) ([]store.NodeRoute, error) {
	return f.primary, nil
}
func (f *fakeRouteStore) LoadAlternateRoutes(ctx context.Context, gatewayID string) ([]store.NodeRoute, error) {
	return nil, nil
}

func writeFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, content, 0o644))
}

func TestComputeCRC16StableAcrossCalls(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/fw/image.bin", []byte("firmware-image-bytes"))

	first, err := computeCRC16(fs, "/fw/image.bin")
	require.NoError(t, err)
	second, err := computeCRC16(fs, "/fw/image.bin")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSessionCrcForSkipsFileIOWhenCached(t *testing.T) {
	fs := afero.NewMemMapFs() // empty: any file read would fail

	cached := uint16(0xBEEF)
	ses := &Session{CRC16: &cached, Upload: newTestUpload()}

	got, err := ses.crcFor(fs)
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}

func newTestUpload() *models.DlmsFuotaUpload {
	return &models.DlmsFuotaUpload{FirmwarePath: "/fw", FirmwareFilename: "image.bin"}
}

func TestLeavesExcludesTargetAndIntermediateHops(t *testing.T) {
	// Topology: gateway -> A -> B (A is an intermediate hop on B's route,
	// so A is not a leaf); gateway -> C (C is a leaf); gateway -> D, the
	// on-demand target, excluded regardless of topology.
	const gwPrefix = "3CC1F601"
	fake := &fakeRouteStore{primary: []store.NodeRoute{
		{MAC: "A", HopCount: 1, PathHex: gwPrefix + "01010101"},
		{MAC: "B", HopCount: 2, PathHex: gwPrefix + "0101010102020202"},
		{MAC: "C", HopCount: 1, PathHex: gwPrefix + "03030303"},
		{MAC: "D", HopCount: 1, PathHex: gwPrefix + "04040404"},
	}}

	book, err := pathbook.Load(context.Background(), fake, "GW1")
	require.NoError(t, err)

	leaves := Leaves(book, "D")
	assert.Equal(t, []string{"B", "C"}, leaves)
}

func TestResumeOffsetMatchesScenarioF(t *testing.T) {
	const sector = uint16(512)
	const maxPayload = 103

	offset := resumeOffset(8, 5, sector, maxPayload)
	assert.Equal(t, int64(8*512+5*103), offset)
}

func TestDetectMismatchParsesQueriedPosition(t *testing.T) {
	frame := &dlms.Frame{
		Command:    cmdImageAck,
		SubCommand: subImageSubpageMismatch,
		Records: []dlms.Record{
			{Value: dlms.Uint16Value(8)},
			{Value: dlms.Uint8Value(5)},
		},
	}

	mm, ok := detectMismatch(frame)
	require.True(t, ok)
	assert.Equal(t, 8, mm.page)
	assert.Equal(t, 5, mm.subpage)
	assert.False(t, mm.isPageMismatch)
}

func TestDetectMismatchIgnoresNormalAck(t *testing.T) {
	frame := &dlms.Frame{Command: cmdImageAck, SubCommand: subImageAckFinal}
	_, ok := detectMismatch(frame)
	assert.False(t, ok)
}

func TestBuildTransferPayloadLayout(t *testing.T) {
	payload := buildTransferPayload(5, 300, []byte{0xAA, 0xBB})
	require.Len(t, payload, 5)
	assert.Equal(t, byte(5), payload[0])
	assert.Equal(t, byte(300>>8), payload[1])
	assert.Equal(t, byte(300), payload[2])
	assert.Equal(t, []byte{0xAA, 0xBB}, payload[3:])
}
