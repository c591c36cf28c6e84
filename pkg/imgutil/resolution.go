package imgutil

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// Resolution is the pixel density an image declares for physical sizing,
// in dots per inch.
type Resolution struct {
	X float64
	Y float64
}

// Valid reports whether both axes carry a usable density.
func (r Resolution) Valid() bool {
	return r.X >= 1 && r.Y >= 1
}

const (
	inchesPerMeter = 0.0254
	cmPerInch      = 2.54
)

// ReadResolution returns the resolution embedded in the image read from rs.
// ok is false when the image does not declare a physical resolution. JPEG
// files are checked for EXIF first and JFIF density second, TIFF files for
// EXIF, PNG files for a pHYs chunk and BMP files for their info header
// density.
func ReadResolution(rs io.ReadSeeker, kind Kind) (res Resolution, ok bool, err error) {
	switch kind {
	case KindJPEG:
		res, ok, err = jpegExifResolution(rs)
		if err == nil && ok {
			return res, true, nil
		}
		return jfifResolution(rs)
	case KindTIFF:
		return tiffResolution(rs)
	case KindPNG:
		return pngResolution(rs)
	case KindBMP:
		return bmpResolution(rs)
	default:
		return Resolution{}, false, nil
	}
}

// jpegExifResolution locates the EXIF block inside the APP1 segment before
// parsing it; the flat readers expect data starting at the TIFF header.
func jpegExifResolution(rs io.ReadSeeker) (Resolution, bool, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Resolution{}, false, err
	}

	raw, err := exif.SearchAndExtractExifWithReader(rs)
	if err != nil {
		if errorsIsNoExif(err) {
			return Resolution{}, false, nil
		}
		return Resolution{}, false, err
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		if errorsIsNoExif(err) {
			return Resolution{}, false, nil
		}
		return Resolution{}, false, err
	}
	return exifTagsResolution(tags)
}

func tiffResolution(rs io.ReadSeeker) (Resolution, bool, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Resolution{}, false, err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if errorsIsNoExif(err) {
			return Resolution{}, false, nil
		}
		return Resolution{}, false, err
	}
	return exifTagsResolution(tags)
}

func exifTagsResolution(tags []exif.ExifTag) (Resolution, bool, error) {
	// IFD0 precedes the thumbnail IFD in the flat list, so the first value wins.
	var xRaw, yRaw, unitRaw string
	for _, tag := range tags {
		switch tag.TagName {
		case "XResolution":
			if xRaw == "" {
				xRaw = tag.Formatted
			}
		case "YResolution":
			if yRaw == "" {
				yRaw = tag.Formatted
			}
		case "ResolutionUnit":
			if unitRaw == "" {
				unitRaw = tag.Formatted
			}
		}
	}
	if xRaw == "" || yRaw == "" {
		return Resolution{}, false, nil
	}

	x, okX := parseRational(firstField(xRaw))
	y, okY := parseRational(firstField(yRaw))
	if !okX || !okY {
		return Resolution{}, false, nil
	}

	switch firstField(unitRaw) {
	case "", "2":
	case "3":
		x *= cmPerInch
		y *= cmPerInch
	default:
		return Resolution{}, false, nil
	}

	res := Resolution{X: x, Y: y}
	return res, res.Valid(), nil
}

// bmpInfoHeaderSize is the smallest DIB header carrying a density.
const bmpInfoHeaderSize = 40

// bmpResolution reads biXPelsPerMeter and biYPelsPerMeter from the info
// header. Zero means the writer left the density unset.
func bmpResolution(rs io.ReadSeeker) (Resolution, bool, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Resolution{}, false, err
	}

	header := make([]byte, 14+bmpInfoHeaderSize)
	if _, err := io.ReadFull(rs, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Resolution{}, false, nil
		}
		return Resolution{}, false, err
	}
	if !hasPrefix(header, bmpSig) {
		return Resolution{}, false, errors.New("invalid BMP signature")
	}
	if binary.LittleEndian.Uint32(header[14:18]) < bmpInfoHeaderSize {
		return Resolution{}, false, nil
	}

	xPPM := int32(binary.LittleEndian.Uint32(header[38:42]))
	yPPM := int32(binary.LittleEndian.Uint32(header[42:46]))
	if xPPM <= 0 || yPPM <= 0 {
		return Resolution{}, false, nil
	}
	res := Resolution{
		X: float64(xPPM) * inchesPerMeter,
		Y: float64(yPPM) * inchesPerMeter,
	}
	return res, res.Valid(), nil
}

func jfifResolution(rs io.ReadSeeker) (Resolution, bool, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Resolution{}, false, err
	}
	br := bufio.NewReader(rs)

	soi := make([]byte, 2)
	if _, err := io.ReadFull(br, soi); err != nil {
		return Resolution{}, false, err
	}
	if soi[0] != 0xff || soi[1] != 0xd8 {
		return Resolution{}, false, errors.New("invalid JPEG SOI")
	}

	for {
		marker, err := nextJPEGMarker(br)
		if err != nil {
			return Resolution{}, false, err
		}
		if marker == 0xda || marker == 0xd9 { // SOS, EOI
			return Resolution{}, false, nil
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			continue
		}

		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			return Resolution{}, false, err
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf))
		if segLen < 2 {
			return Resolution{}, false, errors.New("invalid JPEG segment length")
		}
		payloadLen := segLen - 2

		if marker != 0xe0 {
			if _, err := io.CopyN(io.Discard, br, int64(payloadLen)); err != nil {
				return Resolution{}, false, err
			}
			continue
		}

		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(br, payload); err != nil {
			return Resolution{}, false, err
		}
		if !hasPrefix(payload, jfifHeader) || len(payload) < 12 {
			continue
		}

		units := payload[7]
		x := float64(binary.BigEndian.Uint16(payload[8:10]))
		y := float64(binary.BigEndian.Uint16(payload[10:12]))
		switch units {
		case 1:
		case 2:
			x *= cmPerInch
			y *= cmPerInch
		default:
			return Resolution{}, false, nil
		}
		res := Resolution{X: x, Y: y}
		return res, res.Valid(), nil
	}
}

var jfifHeader = []byte("JFIF\x00")

func nextJPEGMarker(br *bufio.Reader) (byte, error) {
	prefix, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	for prefix != 0xff {
		prefix, err = br.ReadByte()
		if err != nil {
			return 0, err
		}
	}

	marker, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	for marker == 0xff {
		marker, err = br.ReadByte()
		if err != nil {
			return 0, err
		}
	}
	return marker, nil
}

func pngResolution(rs io.ReadSeeker) (Resolution, bool, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Resolution{}, false, err
	}
	br := bufio.NewReader(rs)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return Resolution{}, false, err
	}
	if !hasPrefix(sig, pngSig) {
		return Resolution{}, false, errors.New("invalid PNG signature")
	}

	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if err == io.EOF {
				return Resolution{}, false, nil
			}
			return Resolution{}, false, err
		}
		length := binary.BigEndian.Uint32(lenBuf)

		typeBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, typeBuf); err != nil {
			return Resolution{}, false, err
		}

		switch string(typeBuf) {
		case "pHYs":
			if length != 9 {
				return Resolution{}, false, errors.New("invalid pHYs chunk")
			}
			data := make([]byte, 9)
			if _, err := io.ReadFull(br, data); err != nil {
				return Resolution{}, false, err
			}
			if data[8] != 1 { // unit is not the meter
				return Resolution{}, false, nil
			}
			res := Resolution{
				X: float64(binary.BigEndian.Uint32(data[0:4])) * inchesPerMeter,
				Y: float64(binary.BigEndian.Uint32(data[4:8])) * inchesPerMeter,
			}
			return res, res.Valid(), nil
		case "IDAT", "IEND":
			// pHYs must precede the image data.
			return Resolution{}, false, nil
		default:
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				return Resolution{}, false, err
			}
		}
	}
}

func firstField(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func parseRational(part string) (float64, bool) {
	part = strings.TrimSpace(part)
	if part == "" {
		return 0, false
	}
	if strings.Contains(part, "/") {
		items := strings.SplitN(part, "/", 2)
		num, err := strconv.ParseFloat(items[0], 64)
		if err != nil {
			return 0, false
		}
		den, err := strconv.ParseFloat(items[1], 64)
		if err != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}

	value, err := strconv.ParseFloat(part, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func errorsIsNoExif(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
