package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// bhpTailTruncate/bhpNextPageTemplate implement BHP's paging rewrite: a
// 13-byte tail truncation (shorter than DLP/BLP's 18, since BHP's first
// request carries one fewer field group) substituted with the same
// 8-byte next-page template shape.
const bhpTailTruncate = 13

var bhpNextPageTemplate = [8]byte{0x01, 0x0E, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00}

// BillingHistoryParser decodes the billing-history profile (BHP).
type BillingHistoryParser struct{}

func (BillingHistoryParser) Kind() Kind    { return KindBilling }
func (BillingHistoryParser) FrameID() byte { return FrameInstantData }
func (BillingHistoryParser) Command() byte { return CommandBilling }

func (BillingHistoryParser) HasNextPage(frame *dlms.Frame) bool { return hasMoreRecords(frame) }

func (BillingHistoryParser) NextPageRequest(original []byte) []byte {
	return rewriteTail(original, bhpTailTruncate, bhpNextPageTemplate)
}
