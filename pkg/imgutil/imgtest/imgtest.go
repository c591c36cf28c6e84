// Package imgtest builds image files with embedded resolution data for tests.
package imgtest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// ResolutionTIFF returns a little-endian TIFF stream whose IFD0 holds
// XResolution and YResolution of dpi/1 and the given ResolutionUnit
// (2 inch, 3 centimetre).
func ResolutionTIFF(dpi uint32, unit uint16) []byte {
	var tiff bytes.Buffer
	le := binary.LittleEndian
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint16(3))

	// Three 12 byte entries and the next-IFD offset end at 50.
	_ = binary.Write(&tiff, le, uint16(0x011a))
	_ = binary.Write(&tiff, le, uint16(5))
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, uint32(50))

	_ = binary.Write(&tiff, le, uint16(0x011b))
	_ = binary.Write(&tiff, le, uint16(5))
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, uint32(58))

	_ = binary.Write(&tiff, le, uint16(0x0128))
	_ = binary.Write(&tiff, le, uint16(3))
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, unit)
	_ = binary.Write(&tiff, le, uint16(0))

	_ = binary.Write(&tiff, le, uint32(0))

	_ = binary.Write(&tiff, le, dpi)
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, dpi)
	_ = binary.Write(&tiff, le, uint32(1))
	return tiff.Bytes()
}

// EXIFPayload wraps a TIFF stream as an APP1 EXIF payload.
func EXIFPayload(tiff []byte) []byte {
	return append([]byte("Exif\x00\x00"), tiff...)
}

// JFIFPayload returns an APP0 payload declaring x by y dots per inch.
func JFIFPayload(x, y uint16) []byte {
	app0 := []byte("JFIF\x00")
	app0 = append(app0, 1, 1, 1)
	app0 = binary.BigEndian.AppendUint16(app0, x)
	app0 = binary.BigEndian.AppendUint16(app0, y)
	return append(app0, 0, 0)
}

// InsertJPEGSegment places a marker segment right after SOI.
func InsertJPEGSegment(jpeg []byte, marker byte, payload []byte) []byte {
	seg := []byte{0xff, marker}
	seg = binary.BigEndian.AppendUint16(seg, uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := make([]byte, 0, len(jpeg)+len(seg))
	out = append(out, jpeg[:2]...)
	out = append(out, seg...)
	return append(out, jpeg[2:]...)
}

// InsertPNGPhys places a pHYs chunk right after IHDR. unit 1 is the meter.
func InsertPNGPhys(png []byte, x, y uint32, unit byte) []byte {
	payload := binary.BigEndian.AppendUint32(nil, x)
	payload = binary.BigEndian.AppendUint32(payload, y)
	payload = append(payload, unit)

	// 8 byte signature + 25 byte IHDR chunk.
	insertAt := 8 + 25
	out := append([]byte{}, png[:insertAt]...)
	out = append(out, PNGChunk("pHYs", payload)...)
	return append(out, png[insertAt:]...)
}

func PNGChunk(chunkType string, data []byte) []byte {
	chunk := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	chunk = append(chunk, chunkType...)
	chunk = append(chunk, data...)
	crc := crc32.ChecksumIEEE(chunk[4:])
	return binary.BigEndian.AppendUint32(chunk, crc)
}

// SetBMPDensity writes pixels-per-meter into a BMP info header in place.
func SetBMPDensity(bmp []byte, x, y int32) {
	binary.LittleEndian.PutUint32(bmp[38:42], uint32(x))
	binary.LittleEndian.PutUint32(bmp[42:46], uint32(y))
}
