package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// blpTailTruncate/blpNextPageTemplate mirror the daily-load profile's
// paging rewrite (same 18-byte truncation, per §4.4: "DLP/BLP").
const blpTailTruncate = 18

var blpNextPageTemplate = [8]byte{0x01, 0x0E, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}

// BlockLoadParser decodes the block-load profile (BLP).
type BlockLoadParser struct{}

func (BlockLoadParser) Kind() Kind    { return KindBlockLoad }
func (BlockLoadParser) FrameID() byte { return FrameInstantData }
func (BlockLoadParser) Command() byte { return CommandBlockLoad }

func (BlockLoadParser) HasNextPage(frame *dlms.Frame) bool { return hasMoreRecords(frame) }

func (BlockLoadParser) NextPageRequest(original []byte) []byte {
	return rewriteTail(original, blpTailTruncate, blpNextPageTemplate)
}
