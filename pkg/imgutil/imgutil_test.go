package imgutil

import (
	"bytes"
	"encoding/binary"
		"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"binder/pkg/imgutil/imgtest"
)

func TestDetectHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}, KindJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, KindPNG},
		{"tiff le", []byte{'I', 'I', 0x2a, 0x00, 8, 0, 0, 0}, KindTIFF},
		{"tiff be", []byte{'M', 'M', 0x00, 0x2a, 0, 0, 0, 8}, KindTIFF},
		{"gif", []byte("GIF89a\x01\x00"), KindGIF},
		{"bmp", []byte("BM\x00\x00\x00\x00"), KindBMP},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBP"), KindWebP},
		{"riff but not webp", []byte("RIFF\x10\x00\x00\x00WAVE"), KindUnknown},
		{"text", []byte("hello world!"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectHeader(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSniffReaderShortInput(t *testing.T) {
	kind, err := SniffReader(bytes.NewReader([]byte("BM")))
	require.NoError(t, err)
	assert.Equal(t, KindBMP, kind)

	_, err = SniffReader(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestKindFromExt(t *testing.T) {
	assert.Equal(t, KindJPEG, KindFromExt(".JPG"))
	assert.Equal(t, KindJPEG, KindFromExt("jpeg"))
	assert.Equal(t, KindTIFF, KindFromExt(".tif"))
	assert.Equal(t, KindWebP, KindFromExt(".webp"))
	assert.Equal(t, KindUnknown, KindFromExt(".txt"))
	assert.Equal(t, "webp", KindWebP.String())
}

func TestReadResolutionPNG(t *testing.T) {
	data := pngWithPhys(t, 11811, 11811, 1) // 300 dpi
	res, ok, err := ReadResolution(bytes.NewReader(data), KindPNG)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 300, res.X, 0.1)
	assert.InDelta(t, 300, res.Y, 0.1)
}

func TestReadResolutionPNGUnknownUnit(t *testing.T) {
	data := pngWithPhys(t, 2, 1, 0)
	_, ok, err := ReadResolution(bytes.NewReader(data), KindPNG)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadResolutionPNGWithoutPHYs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	_, ok, err := ReadResolution(bytes.NewReader(buf.Bytes()), KindPNG)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadResolutionJFIF(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	app0 := imgtest.JFIFPayload(150, 200)
	buf.Write([]byte{0xff, 0xe0})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(app0)+2))
	buf.Write(app0)
	buf.Write([]byte{0xff, 0xd9})

	res, ok, err := jfifResolution(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Resolution{X: 150, Y: 200}, res)
}

func TestReadResolutionEXIF(t *testing.T) {
	exifPayload := imgtest.EXIFPayload(imgtest.ResolutionTIFF(300, 2))

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exifPayload)+2))
	buf.Write(exifPayload)
	buf.Write([]byte{0xff, 0xd9})

	res, ok, err := ReadResolution(bytes.NewReader(buf.Bytes()), KindJPEG)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 300, res.X, 0.001)
	assert.InDelta(t, 300, res.Y, 0.001)
}

func TestReadResolutionEncodedJPEGWithEXIF(t *testing.T) {
	data := encodeJPEG(t, 600, 300)
	data = imgtest.InsertJPEGSegment(data, 0xe1, imgtest.EXIFPayload(imgtest.ResolutionTIFF(300, 2)))

	res, ok, err := ReadResolution(bytes.NewReader(data), KindJPEG)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 300, res.X, 0.001)
	assert.InDelta(t, 300, res.Y, 0.001)

	_, err = jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestReadResolutionJPEGCentimetres(t *testing.T) {
	data := encodeJPEG(t, 8, 8)
	data = imgtest.InsertJPEGSegment(data, 0xe1, imgtest.EXIFPayload(imgtest.ResolutionTIFF(100, 3)))

	res, ok, err := ReadResolution(bytes.NewReader(data), KindJPEG)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 254, res.X, 0.001)
}

func TestReadResolutionJPEGFallsBackToJFIF(t *testing.T) {
	data := imgtest.InsertJPEGSegment(encodeJPEG(t, 8, 8), 0xe0, imgtest.JFIFPayload(96, 96))

	res, ok, err := ReadResolution(bytes.NewReader(data), KindJPEG)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Resolution{X: 96, Y: 96}, res)
}

func TestReadResolutionJPEGWithoutDensity(t *testing.T) {
	_, ok, err := ReadResolution(bytes.NewReader(encodeJPEG(t, 8, 8)), KindJPEG)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadResolutionTIFF(t *testing.T) {
	res, ok, err := ReadResolution(bytes.NewReader(imgtest.ResolutionTIFF(200, 2)), KindTIFF)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 200, res.X, 0.001)
}

func TestReadResolutionBMP(t *testing.T) {
	data := encodeBMP(t, 4, 4)
	_, ok, err := ReadResolution(bytes.NewReader(data), KindBMP)
	require.NoError(t, err)
	assert.False(t, ok)

	imgtest.SetBMPDensity(data, 11811, 5906)
	res, ok, err := ReadResolution(bytes.NewReader(data), KindBMP)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 300, res.X, 0.01)
	assert.InDelta(t, 150, res.Y, 0.1)

	_, ok, err = ReadResolution(bytes.NewReader([]byte("BM")), KindBMP)
	require.NoError(t, err)
	assert.False(t, ok)
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodeBMP(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestParseRational(t *testing.T) {
	v, ok := parseRational(firstField("[72/1]"))
	require.True(t, ok)
	assert.Equal(t, 72.0, v)

	_, ok = parseRational("1/0")
	assert.False(t, ok)
}

func pngWithPhys(t *testing.T, x, y uint32, unit byte) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imgtest.InsertPNGPhys(buf.Bytes(), x, y, unit)
}
