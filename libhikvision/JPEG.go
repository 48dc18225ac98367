package libhikvision

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

const (
	markerSOI  = 0xFFD8
	markerEOI  = 0xFFD9
	markerSOS  = 0xFFDA
	markerTEM  = 0xFF01
	markerRST0 = 0xFFD0
	markerRST7 = 0xFFD7
)

// ErrNotJPEG is returned by ProbeJPEG for data that does not start with a JPEG SOI marker
var ErrNotJPEG = errors.New("not a JPEG image")

// JPEGInfo describes a JPEG picture as read from its frame header
type JPEGInfo struct {
	Width      int
	Height     int
	Components int
	Precision  int
}

func (i JPEGInfo) String() string {
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// ProbeJPEG reads the marker segments of a JPEG picture up to the first frame header
func ProbeJPEG(data []byte) (JPEGInfo, error) {
	r := bitio.NewReader(bytes.NewReader(data))

	soi, err := r.ReadBits(16)
	if err != nil || soi != markerSOI {
		return JPEGInfo{}, ErrNotJPEG
	}

	for {
		marker, err := readMarker(r)
		if err != nil {
			return JPEGInfo{}, fmt.Errorf("reading marker: %w", err)
		}

		switch {
		case marker == markerEOI || marker == markerSOS:
			return JPEGInfo{}, errors.New("no frame header before image data")
		case marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7):
			// standalone markers carry no length
			continue
		}

		length, err := r.ReadBits(16)
		if err != nil {
			return JPEGInfo{}, fmt.Errorf("reading segment length: %w", err)
		}
		if length < 2 {
			return JPEGInfo{}, fmt.Errorf("invalid segment length %d for marker 0x%X", length, marker)
		}

		if isFrameHeader(marker) {
			return readFrameHeader(r)
		}

		if err := skip(r, int(length)-2); err != nil {
			return JPEGInfo{}, fmt.Errorf("skipping segment 0x%X: %w", marker, err)
		}
	}
}

// readMarker reads the next marker, fill bytes (0xFF runs) are skipped
func readMarker(r *bitio.Reader) (uint16, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, fmt.Errorf("expected marker, got 0x%02X", b)
	}
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != 0xFF {
			return 0xFF00 | uint16(b), nil
		}
	}
}

// SOF0..SOF15 without DHT (C4), JPG (C8) and DAC (CC)
func isFrameHeader(marker uint16) bool {
	if marker < 0xFFC0 || marker > 0xFFCF {
		return false
	}
	return marker != 0xFFC4 && marker != 0xFFC8 && marker != 0xFFCC
}

func readFrameHeader(r *bitio.Reader) (JPEGInfo, error) {
	precision, err := r.ReadBits(8)
	if err != nil {
		return JPEGInfo{}, err
	}
	height, err := r.ReadBits(16)
	if err != nil {
		return JPEGInfo{}, err
	}
	width, err := r.ReadBits(16)
	if err != nil {
		return JPEGInfo{}, err
	}
	components, err := r.ReadBits(8)
	if err != nil {
		return JPEGInfo{}, err
	}
	if width == 0 || components == 0 {
		return JPEGInfo{}, errors.New("invalid frame header")
	}
	return JPEGInfo{
		Width:      int(width),
		Height:     int(height),
		Components: int(components),
		Precision:  int(precision),
	}, nil
}

func skip(r *bitio.Reader, n int) error {
	_, err := io.CopyN(io.Discard, r, int64(n))
	return err
}
