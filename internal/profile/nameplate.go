package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// NameplateParser decodes the single-page nameplate profile (manufacturer,
// serial, meter type and the other identity fields announced once per
// node). It never pages.
type NameplateParser struct{}

func (NameplateParser) Kind() Kind    { return KindNameplate }
func (NameplateParser) FrameID() byte { return FrameInstantData }
func (NameplateParser) Command() byte { return CommandNameplate }

func (NameplateParser) HasNextPage(frame *dlms.Frame) bool     { return false }
func (NameplateParser) NextPageRequest(original []byte) []byte { return original }
