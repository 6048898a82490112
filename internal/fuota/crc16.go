package fuota

import (
	"io"

	"github.com/spf13/afero"

	"github.com/rfmesh/hes/internal/protoerr"
)

// crc16Table is the reflected CRC-16/0xA001 table, built once at process
// start and reused by every computeCRC16 call (§4.6: "initialised once per
// process and reused").
var crc16Table [256]uint16

func init() {
	const poly = 0xA001
	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		crc16Table[i] = crc
	}
}

// computeCRC16 streams path through crc16Table with initial value 0.
func computeCRC16(fs afero.Fs, path string) (uint16, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, &protoerr.FirmwareIOError{Kind: protoerr.FirmwareOpen}
	}
	defer f.Close()

	var crc uint16
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		for _, b := range buf[:n] {
			crc = (crc >> 8) ^ crc16Table[byte(crc)^b]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, &protoerr.FirmwareIOError{Kind: protoerr.FirmwareRead}
		}
	}
	return crc, nil
}

// crcFor returns ses's CRC-16, computing and caching it on first use — a
// resumed session with an already-cached value skips the file read
// entirely (Testable Property #7).
func (s *Session) crcFor(fs afero.Fs) (uint16, error) {
	if s.CRC16 != nil {
		return *s.CRC16, nil
	}
	crc, err := computeCRC16(fs, s.imagePath())
	if err != nil {
		return 0, err
	}
	s.CRC16 = &crc
	return crc, nil
}
