package profile

import "github.com/rfmesh/hes/internal/codec/dlms"

// ScalarEntry is one OBIS scalar-list entry: the scale factor and unit
// code the scheduler consults as a typed lookup when converting a raw
// profile value into its display units (§1's scaling-table boundary).
type ScalarEntry struct {
	DataIndex byte
	Scale     int8
	Unit      byte
}

// ScalarParser decodes the OBIS scalar-metadata list. It never pages.
type ScalarParser struct{}

func (ScalarParser) Kind() Kind    { return KindScalar }
func (ScalarParser) FrameID() byte { return FrameScalarList }
func (ScalarParser) Command() byte { return 0 }

func (ScalarParser) HasNextPage(frame *dlms.Frame) bool     { return false }
func (ScalarParser) NextPageRequest(original []byte) []byte { return original }

// ParseScalarList extracts the scale/unit pair for every record in frame.
// The scale factor is carried as the value itself; the unit code is
// carried in the record's status byte (the only per-record metadata slot
// the wire format offers beyond data-index and type).
func ParseScalarList(frame *dlms.Frame) []ScalarEntry {
	entries := make([]ScalarEntry, 0, len(frame.Records))
	for _, rec := range frame.Records {
		entries = append(entries, ScalarEntry{
			DataIndex: rec.DataIndex,
			Scale:     rec.Value.Int8(),
			Unit:      rec.Status,
		})
	}
	return entries
}
