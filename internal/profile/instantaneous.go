package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// InstantaneousParser decodes one instantaneous-profile (IP) cycle: a
// single-page snapshot read via the bulk cache-data frame.
type InstantaneousParser struct{}

func (InstantaneousParser) Kind() Kind    { return KindInstantaneous }
func (InstantaneousParser) FrameID() byte { return FrameCacheData }
func (InstantaneousParser) Command() byte { return CommandInstantaneous }

func (InstantaneousParser) HasNextPage(frame *dlms.Frame) bool     { return false }
func (InstantaneousParser) NextPageRequest(original []byte) []byte { return original }
