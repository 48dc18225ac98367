package libhikvision

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeJPEG(t *testing.T) {
	info, err := ProbeJPEG(testJPEG(t, 640, 360))
	require.NoError(t, err)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 360, info.Height)
	assert.Equal(t, 3, info.Components)
	assert.Equal(t, 8, info.Precision)
	assert.Equal(t, "640x360", info.String())
}

func TestProbeJPEGRejects(t *testing.T) {
	picture := testJPEG(t, 16, 16)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"xml error document", []byte(notSupportXML)},
		{"soi only", []byte{0xFF, 0xD8}},
		{"truncated segment", picture[:8]},
		{"image data before frame header", []byte{0xFF, 0xD8, 0xFF, 0xDA, 0x00, 0x02}},
		{"garbage after soi", []byte{0xFF, 0xD8, 0x12, 0x34}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProbeJPEG(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestProbeJPEGSkipsFillBytes(t *testing.T) {
	data := []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xFF, 0xE0, 0x00, 0x04, 0x00, 0x00, // APP0 with a fill byte
		0xFF, 0xC2, 0x00, 0x0B, 0x08, 0x02, 0xD0, 0x05, 0x00, 0x01, 0x01, 0x11, 0x00, // progressive SOF2, 1280x720
	}

	info, err := ProbeJPEG(data)
	require.NoError(t, err)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.Equal(t, 1, info.Components)
}

func ExampleProbeJPEG() {
	data := []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xC0, 0x00, 0x11, 0x08, 0x04, 0x38, 0x07, 0x80, 0x03, // SOF0, 1920x1080, 3 components
		0x01, 0x22, 0x00, 0x02, 0x11, 0x01, 0x03, 0x11, 0x01,
	}

	info, err := ProbeJPEG(data)
	if err != nil {
		fmt.Printf("Not a picture: %s\n", err)
		return
	}
	fmt.Printf("Picture: %s\n", info)

	// Output: Picture: 1920x1080
}
