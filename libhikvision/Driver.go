//go:generate mockgen -destination=mock_driver.go -package=libhikvision github.com/jonas-koeritz/hikcam/libhikvision Driver

package libhikvision

import "fmt"

// Driver is the device SDK surface a Session is built on. Every failing call
// leaves its error number available through LastError until the next call.
type Driver interface {
	Init() error
	Cleanup() error
	Login(address string, port int, username, password string) (int32, DeviceInfo, error)
	Logout(userID int32) error
	CaptureJPEG(userID int32, channel int, params JPEGParams, path string) error
	RealPlay(userID int32, channel int, fn FrameFunc) (int32, error)
	StopRealPlay(realHandle int32) error
	LastError() ErrorCode
}

// DeviceInfo is the metadata a device reports on login
type DeviceInfo struct {
	DeviceName           string `xml:"deviceName"`
	DeviceID             string `xml:"deviceID"`
	Model                string `xml:"model"`
	SerialNumber         string `xml:"serialNumber"`
	MACAddress           string `xml:"macAddress"`
	FirmwareVersion      string `xml:"firmwareVersion"`
	FirmwareReleasedDate string `xml:"firmwareReleasedDate"`
	DeviceType           string `xml:"deviceType"`
}

// PictureQuality selects the JPEG quality tier
type PictureQuality uint16

const (
	QualityBest   PictureQuality = 0
	QualityBetter PictureQuality = 1
	QualityNormal PictureQuality = 2
)

// PictureSize selects the capture resolution, SizeAuto uses the current stream resolution
type PictureSize uint16

const (
	SizeCIF    PictureSize = 0
	SizeQCIF   PictureSize = 1
	Size4CIF   PictureSize = 2
	SizeUXGA   PictureSize = 3
	SizeSVGA   PictureSize = 4
	SizeHD720  PictureSize = 5
	SizeVGA    PictureSize = 6
	SizeXVGA   PictureSize = 7
	SizeHD900  PictureSize = 8
	SizeHD1080 PictureSize = 9
	SizeAuto   PictureSize = 0xff
)

var resolutions = map[PictureSize][2]int{
	SizeCIF:    {352, 288},
	SizeQCIF:   {176, 144},
	Size4CIF:   {704, 576},
	SizeUXGA:   {1600, 1200},
	SizeSVGA:   {800, 600},
	SizeHD720:  {1280, 720},
	SizeVGA:    {640, 480},
	SizeXVGA:   {1280, 960},
	SizeHD900:  {1600, 900},
	SizeHD1080: {1920, 1080},
}

// Resolution returns width and height for a fixed picture size. ok is false
// for SizeAuto and unknown sizes.
func (s PictureSize) Resolution() (width, height int, ok bool) {
	r, ok := resolutions[s]
	return r[0], r[1], ok
}

func (s PictureSize) String() string {
	if s == SizeAuto {
		return "auto"
	}
	if w, h, ok := s.Resolution(); ok {
		return fmt.Sprintf("%dx%d", w, h)
	}
	return fmt.Sprintf("size(%d)", uint16(s))
}

// JPEGParams are the capture parameters handed to the device
type JPEGParams struct {
	Quality PictureQuality
	Size    PictureSize
}

// Frame is a single JPEG picture received from a live view
type Frame struct {
	Seq    uint32
	Data   []byte
	Width  int
	Height int
}

// FrameFunc receives live view frames, it is called from the driver's reader goroutine
type FrameFunc func(frame Frame)
