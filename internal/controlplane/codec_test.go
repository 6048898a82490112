package controlplane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := &KickGatewayRequest{GatewayID: "0011223344556677"}

	data, err := c.Marshal(req)
	require.NoError(t, err)

	got := new(KickGatewayRequest)
	require.NoError(t, c.Unmarshal(data, got))
	assert.Equal(t, req.GatewayID, got.GatewayID)
	assert.Equal(t, codecName, c.Name())
}
