package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// dlpTailTruncate/dlpNextPageTemplate implement Scenario D's paging
// rewrite for the daily-load profile: the first-page request's trailing
// 18 bytes are replaced by an 8-byte "fetch next page" template.
const dlpTailTruncate = 18

var dlpNextPageTemplate = [8]byte{0x01, 0x0E, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00}

// DailyLoadParser decodes the daily-load profile (DLP), a two-stage
// command: the first page uses the full request shape, every subsequent
// page uses the truncated next-page template.
type DailyLoadParser struct{}

func (DailyLoadParser) Kind() Kind    { return KindDailyLoad }
func (DailyLoadParser) FrameID() byte { return FrameInstantData }
func (DailyLoadParser) Command() byte { return CommandDailyLoad }

func (DailyLoadParser) HasNextPage(frame *dlms.Frame) bool { return hasMoreRecords(frame) }

func (DailyLoadParser) NextPageRequest(original []byte) []byte {
	return rewriteTail(original, dlpTailTruncate, dlpNextPageTemplate)
}
