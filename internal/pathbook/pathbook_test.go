package pathbook

import (
	"context"
	"testing"

	"github.com/rfmesh/hes/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouteStore struct {
	primary    []store.NodeRoute
	alternates []store.NodeRoute
}

func (f *fakeRouteStore) LoadPrimaryRoutes(ctx context.Context, gatewayID string) ([]store.NodeRoute, error) {
	return f.primary, nil
}

func (f *fakeRouteStore) LoadAlternateRoutes(ctx context.Context, gatewayID string) ([]store.NodeRoute, error) {
	return f.alternates, nil
}

func TestLoadStripsGatewayPrefix(t *testing.T) {
	fake := &fakeRouteStore{
		primary: []store.NodeRoute{
			{MAC: "AABBCCDD", HopCount: 0, PathHex: "3CC1F601A3535435"},
		},
	}

	book, err := Load(context.Background(), fake, "GW1")
	require.NoError(t, err)

	info, ok := book.Primary("AABBCCDD")
	require.True(t, ok)
	assert.Equal(t, 0, info.HopCount)
	assert.Equal(t, [][4]byte{{0xA3, 0x53, 0x54, 0x35}}, info.Hops)
}

func TestAlternatesOrderedByOrdinal(t *testing.T) {
	fake := &fakeRouteStore{
		alternates: []store.NodeRoute{
			{MAC: "AABBCCDD", Ordinal: 1, HopCount: 2, PathHex: "3CC1F601010203040A0B0C0D"},
			{MAC: "AABBCCDD", Ordinal: 0, HopCount: 1, PathHex: "3CC1F60101020304"},
		},
	}

	book, err := Load(context.Background(), fake, "GW1")
	require.NoError(t, err)

	alts := book.Alternates("AABBCCDD")
	require.Len(t, alts, 2)
	assert.Equal(t, 1, alts[0].HopCount)
	assert.Equal(t, 2, alts[1].HopCount)
}

func TestForHopCountPrefersMatchingHopCount(t *testing.T) {
	alts := []PathInfo{
		{HopCount: 1},
		{HopCount: 2},
		{HopCount: 1},
	}

	reordered := ForHopCount(alts, 2)
	assert.Equal(t, 2, reordered[0].HopCount)
}
