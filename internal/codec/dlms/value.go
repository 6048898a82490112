// Package dlms encodes and decodes the DLMS sub-frame nested inside a
// PMESH payload: start/length/page/frame-id/command/sub-command header,
// typed records, and the low-byte-sum checksum trailer.
package dlms

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ValueKind tags the variant held by a DlmsValue.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindDateTime
	KindOctetString
	KindString
	KindEnum
)

// indiaOffset is the fixed 5h30m offset applied to the four-byte
// seconds-since-epoch datetime encoding before display formatting.
const indiaOffset = 5*time.Hour + 30*time.Minute

// Value is a tagged union over the DLMS wire types. It favors a struct with
// a Kind discriminant and raw storage over an interface-per-variant so the
// common decode path (read a handful of bytes, stash them, move on) does
// not allocate.
type Value struct {
	Kind ValueKind
	u    uint64
	f    float64
	s    string
	b    []byte
}

func BoolValue(v bool) Value {
	var u uint64
	if v {
		u = 1
	}
	return Value{Kind: KindBool, u: u}
}

func Int8Value(v int8) Value     { return Value{Kind: KindInt8, u: uint64(uint8(v))} }
func Int16Value(v int16) Value   { return Value{Kind: KindInt16, u: uint64(uint16(v))} }
func Int32Value(v int32) Value   { return Value{Kind: KindInt32, u: uint64(uint32(v))} }
func Int64Value(v int64) Value   { return Value{Kind: KindInt64, u: uint64(v)} }
func Uint8Value(v uint8) Value   { return Value{Kind: KindUint8, u: uint64(v)} }
func Uint16Value(v uint16) Value { return Value{Kind: KindUint16, u: uint64(v)} }
func Uint32Value(v uint32) Value { return Value{Kind: KindUint32, u: uint64(v)} }
func Uint64Value(v uint64) Value { return Value{Kind: KindUint64, u: v} }
func Float32Value(v float32) Value {
	return Value{Kind: KindFloat32, f: float64(v)}
}
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, f: v} }
func EnumValue(v uint8) Value      { return Value{Kind: KindEnum, u: uint64(v)} }
func OctetStringValue(b []byte) Value {
	return Value{Kind: KindOctetString, b: append([]byte(nil), b...)}
}
func StringValue(s string) Value { return Value{Kind: KindString, s: s} }

// DateTimeValue wraps the raw seconds-since-epoch wire value; Time()
// applies the India local offset on read.
func DateTimeValue(secondsSinceEpoch uint32) Value {
	return Value{Kind: KindDateTime, u: uint64(secondsSinceEpoch)}
}

func (v Value) Bool() bool           { return v.u != 0 }
func (v Value) Int8() int8           { return int8(uint8(v.u)) }
func (v Value) Int16() int16         { return int16(uint16(v.u)) }
func (v Value) Int32() int32         { return int32(uint32(v.u)) }
func (v Value) Int64() int64         { return int64(v.u) }
func (v Value) Uint8() uint8         { return uint8(v.u) }
func (v Value) Uint16() uint16       { return uint16(v.u) }
func (v Value) Uint32() uint32       { return uint32(v.u) }
func (v Value) Uint64() uint64       { return v.u }
func (v Value) Float32() float32     { return float32(v.f) }
func (v Value) Float64() float64     { return v.f }
func (v Value) Enum() uint8          { return uint8(v.u) }
func (v Value) OctetString() []byte  { return v.b }
func (v Value) String() string       { return v.s }

// Time returns the datetime value as a local wall-clock time, offset by
// 5h30m (India local offset) from the raw seconds-since-epoch wire value.
func (v Value) Time() time.Time {
	return time.Unix(int64(v.u), 0).UTC().Add(indiaOffset)
}

// recordType is the wire type tag of a typed record (the third byte of
// `data-index | status | dlms-type | [length] | value-bytes`).
type recordType byte

const (
	typeBool        recordType = 0x01
	typeInt8        recordType = 0x02
	typeInt16       recordType = 0x03
	typeInt32       recordType = 0x04
	typeInt64       recordType = 0x05
	typeUint8       recordType = 0x06
	typeUint16      recordType = 0x07
	typeUint32      recordType = 0x08
	typeUint64      recordType = 0x09
	typeFloat32     recordType = 0x0A
	typeFloat64     recordType = 0x0B
	typeDateTime    recordType = 0x0C
	typeOctetString recordType = 0x0D
	typeString      recordType = 0x0E
	typeBitString   recordType = 0x0F
	typeEnum        recordType = 0x10
	typeArray       recordType = 0x11
	typeStructure   recordType = 0x12
	typeCompact     recordType = 0x13
)

// hasLengthByte reports whether the wire type carries an explicit one-byte
// length prefix ahead of its value bytes.
func hasLengthByte(t recordType) bool {
	switch t {
	case typeOctetString, typeString, typeBitString:
		return true
	default:
		return false
	}
}

// fixedWidth returns the value width in bytes for fixed-width scalar types,
// or 0 if the type is variable-width or a container type handled elsewhere.
func fixedWidth(t recordType) int {
	switch t {
	case typeBool, typeInt8, typeUint8, typeEnum:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32, typeDateTime:
		return 4
	case typeInt64, typeUint64, typeFloat64:
		return 8
	default:
		return 0
	}
}

// ExtractValue decodes the value bytes for a given wire type. Integer
// encodings are big-endian on the wire.
func ExtractValue(t byte, data []byte) (Value, error) {
	rt := recordType(t)
	width := fixedWidth(rt)
	if width > 0 && len(data) < width {
		return Value{}, fmt.Errorf("dlms: short value for type 0x%02X: need %d bytes, have %d", t, width, len(data))
	}

	switch rt {
	case typeBool:
		return BoolValue(data[0] != 0), nil
	case typeInt8:
		return Int8Value(int8(data[0])), nil
	case typeUint8:
		return Uint8Value(data[0]), nil
	case typeEnum:
		return EnumValue(data[0]), nil
	case typeInt16:
		return Int16Value(int16(binary.BigEndian.Uint16(data))), nil
	case typeUint16:
		return Uint16Value(binary.BigEndian.Uint16(data)), nil
	case typeInt32:
		return Int32Value(int32(binary.BigEndian.Uint32(data))), nil
	case typeUint32:
		return Uint32Value(binary.BigEndian.Uint32(data)), nil
	case typeFloat32:
		return Float32Value(float32FromBits(binary.BigEndian.Uint32(data))), nil
	case typeDateTime:
		return DateTimeValue(binary.BigEndian.Uint32(data)), nil
	case typeInt64:
		return Int64Value(int64(binary.BigEndian.Uint64(data))), nil
	case typeUint64:
		return Uint64Value(binary.BigEndian.Uint64(data)), nil
	case typeFloat64:
		return Float64Value(float64FromBits(binary.BigEndian.Uint64(data))), nil
	case typeOctetString:
		return OctetStringValue(data), nil
	case typeString:
		return StringValue(string(data)), nil
	default:
		return Value{}, fmt.Errorf("dlms: unsupported scalar type 0x%02X", t)
	}
}
