package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// PingStatus is the decoded ping-meter reply: a single-OBIS frame whose
// one-byte load-status record collapses to a connectivity string.
type PingStatus string

const (
	PingConnected    PingStatus = "CONNECTED"
	PingDisconnected PingStatus = "DISCONNECTED"
)

// DecodePingStatus reads the load-status record out of a ping-meter
// response (§4.4's single-OBIS frame 0x0F).
func DecodePingStatus(frame *dlms.Frame) PingStatus {
	for _, rec := range frame.Records {
		switch rec.Value.Kind {
		case dlms.KindUint8, dlms.KindEnum, dlms.KindBool:
			if rec.Value.Uint8() != 0 {
				return PingConnected
			}
			return PingDisconnected
		}
	}
	return PingDisconnected
}
