package libhikvision

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testDevice = DeviceInfo{
	DeviceName:      "IP CAMERA",
	Model:           "DS-2CD2143G0-I",
	SerialNumber:    "DS-2CD2143G0-I20190101AAWRC12345678",
	FirmwareVersion: "V5.5.82",
}

var defaultParams = JPEGParams{Quality: QualityBest, Size: SizeAuto}

func newTestSession(t *testing.T) (*Session, *MockDriver, *bytes.Buffer) {
	t.Helper()

	ctrl := gomock.NewController(t)
	driver := NewMockDriver(ctrl)
	status := &bytes.Buffer{}
	session := NewSession(driver, WithStatusWriter(status))
	return session, driver, status
}

func initialized(t *testing.T, session *Session, driver *MockDriver) {
	t.Helper()

	driver.EXPECT().Init().Return(nil)
	require.NoError(t, session.Initialize())
}

func loggedIn(t *testing.T, session *Session, driver *MockDriver) {
	t.Helper()

	initialized(t, session, driver)
	driver.EXPECT().Login("192.168.1.64", 8000, "admin", "secret").Return(int32(0), testDevice, nil)
	_, err := session.Login("192.168.1.64", 8000, "admin", "secret")
	require.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	session, driver, status := newTestSession(t)
	assert.Equal(t, Uninitialized, session.State())

	gomock.InOrder(
		driver.EXPECT().Init().Return(nil),
		driver.EXPECT().Login("192.168.1.64", 8000, "admin", "secret").Return(int32(0), testDevice, nil),
		driver.EXPECT().CaptureJPEG(int32(0), DefaultChannel, defaultParams, "capture.jpg").Return(nil),
		driver.EXPECT().Logout(int32(0)).Return(nil),
		driver.EXPECT().Cleanup().Return(nil),
	)

	require.NoError(t, session.Initialize())
	assert.Equal(t, Initialized, session.State())

	device, err := session.Login("192.168.1.64", 8000, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, testDevice, device)
	assert.Equal(t, Authenticated, session.State())

	handle, ok := session.Handle()
	assert.True(t, ok)
	assert.Equal(t, int32(0), handle)

	path, err := session.Capture("capture.jpg")
	require.NoError(t, err)
	assert.Equal(t, "capture.jpg", path)
	assert.Equal(t, Authenticated, session.State())

	require.NoError(t, session.Logout())
	assert.Equal(t, Initialized, session.State())

	session.Shutdown()
	assert.Equal(t, Uninitialized, session.State())
	assert.Equal(t, CodeNoError, session.LastError())

	assert.Contains(t, status.String(), "Login Success!")
	assert.Contains(t, status.String(), "Successful to capture the JPEG file and the saved file is capture.jpg")
}

func TestSessionInitializeFailure(t *testing.T) {
	session, driver, _ := newTestSession(t)

	driver.EXPECT().Init().Return(NewSDKError(CodeAllocResourceError, nil))

	err := session.Initialize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitialization)
	assert.Equal(t, CodeAllocResourceError, CodeOf(err))
	assert.Equal(t, CodeAllocResourceError, session.LastError())
	assert.Equal(t, Uninitialized, session.State())

	// nothing to clean up
	session.Shutdown()
}

func TestSessionLoginFailureSkipsCapture(t *testing.T) {
	session, driver, status := newTestSession(t)
	initialized(t, session, driver)

	driver.EXPECT().Login("10.0.0.1", 8000, "admin", "secret").
		Return(int32(-1), DeviceInfo{}, NewSDKError(CodeNetworkFailConnect, errors.New("connection refused")))
	driver.EXPECT().Cleanup().Return(nil)

	_, err := session.Login("10.0.0.1", 8000, "admin", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, CodeNetworkFailConnect, session.LastError())
	assert.Equal(t, Initialized, session.State())

	_, ok := session.Handle()
	assert.False(t, ok)

	// no CaptureJPEG expectation: the mock fails the test on a device call
	_, err = session.Capture("capture.jpg")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, CodeNetworkFailConnect, session.LastError(), "local precondition must not overwrite the login code")

	session.Shutdown()

	assert.Contains(t, status.String(), "NET_DVR_Login_V30 failed, error code= 7")
	assert.Contains(t, status.String(), "Login device fail: ip:10.0.0.1")
	assert.Contains(t, status.String(), "not login, cannot capture")
}

func TestSessionLoginUsesLastErrorWhenUncoded(t *testing.T) {
	session, driver, _ := newTestSession(t)
	initialized(t, session, driver)

	driver.EXPECT().Login("192.168.1.64", 8000, "admin", "wrong").Return(int32(-1), DeviceInfo{}, nil)
	driver.EXPECT().LastError().Return(CodePasswordError)

	_, err := session.Login("192.168.1.64", 8000, "admin", "wrong")
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, CodePasswordError, session.LastError())
}

func TestSessionLoginPassesCredentials(t *testing.T) {
	session, driver, _ := newTestSession(t)
	initialized(t, session, driver)

	driver.EXPECT().Login("cam.local", 8443, "operator", "p4ss").Return(int32(3), testDevice, nil)

	_, err := session.Login("cam.local", 8443, "operator", "p4ss")
	require.NoError(t, err)
}

func TestSessionLoginValidatesInput(t *testing.T) {
	tests := []struct {
		name    string
		address string
		port    int
	}{
		{"empty address", "", 8000},
		{"zero port", "192.168.1.64", 0},
		{"port out of range", "192.168.1.64", 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, driver, _ := newTestSession(t)
			initialized(t, session, driver)

			_, err := session.Login(tt.address, tt.port, "admin", "secret")
			assert.ErrorIs(t, err, ErrAuthentication)
			assert.Equal(t, CodeParameterError, session.LastError())
		})
	}
}

func TestSessionSingleHandle(t *testing.T) {
	session, driver, _ := newTestSession(t)
	loggedIn(t, session, driver)

	_, err := session.Login("192.168.1.65", 8000, "admin", "secret")
	assert.ErrorIs(t, err, ErrAlreadyAuthenticated)

	handle, ok := session.Handle()
	assert.True(t, ok)
	assert.Equal(t, int32(0), handle)
}

func TestSessionCaptureFailure(t *testing.T) {
	session, driver, status := newTestSession(t)
	loggedIn(t, session, driver)

	out := filepath.Join(t.TempDir(), "missing", "capture.jpg")
	driver.EXPECT().CaptureJPEG(int32(0), DefaultChannel, defaultParams, out).
		Return(NewSDKError(CodeCreateFileError, os.ErrNotExist))

	_, err := session.Capture(out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapture)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, CodeCreateFileError, session.LastError())
	assert.Equal(t, Authenticated, session.State())
	assert.Contains(t, status.String(), "NET_DVR_CaptureJPEGPicture failed, error code= 34")
}

func TestSessionCaptureOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := NewMockDriver(ctrl)
	params := JPEGParams{Quality: QualityNormal, Size: SizeHD1080}
	session := NewSession(driver, WithChannel(2), WithJPEGParams(params))

	driver.EXPECT().Init().Return(nil)
	driver.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int32(0), testDevice, nil)
	driver.EXPECT().CaptureJPEG(int32(0), 2, params, "out.jpg").Return(nil)

	require.NoError(t, session.Initialize())
	_, err := session.Login("192.168.1.64", 8000, "admin", "secret")
	require.NoError(t, err)
	_, err = session.Capture("out.jpg")
	require.NoError(t, err)
}

func TestSessionLogoutRefusedDuringPreview(t *testing.T) {
	session, driver, status := newTestSession(t)
	loggedIn(t, session, driver)

	driver.EXPECT().RealPlay(int32(0), DefaultChannel, gomock.Any()).Return(int32(5), nil)
	require.NoError(t, session.StartPreview(func(Frame) {}))
	assert.True(t, session.PreviewActive())

	// no Logout expectation: the device must not be asked
	err := session.Logout()
	assert.ErrorIs(t, err, ErrLogoutRefused)
	assert.Contains(t, status.String(), "Please stop live view firstly")

	handle, ok := session.Handle()
	assert.True(t, ok)
	assert.Equal(t, int32(0), handle)

	gomock.InOrder(
		driver.EXPECT().StopRealPlay(int32(5)).Return(nil),
		driver.EXPECT().Logout(int32(0)).Return(nil),
	)
	require.NoError(t, session.StopPreview())
	require.NoError(t, session.Logout())

	_, ok = session.Handle()
	assert.False(t, ok)
}

func TestSessionLogoutFailureKeepsHandle(t *testing.T) {
	session, driver, status := newTestSession(t)
	loggedIn(t, session, driver)

	driver.EXPECT().Logout(int32(0)).Return(NewSDKError(CodeNetworkSendError, nil))

	err := session.Logout()
	assert.ErrorIs(t, err, ErrLogout)
	assert.Equal(t, CodeNetworkSendError, session.LastError())

	_, ok := session.Handle()
	assert.True(t, ok)

	// shutdown retries the release and always drops the handle
	driver.EXPECT().Logout(int32(0)).Return(NewSDKError(CodeNetworkSendError, nil))
	driver.EXPECT().Cleanup().Return(nil)
	session.Shutdown()

	_, ok = session.Handle()
	assert.False(t, ok)
	assert.Equal(t, 1, strings.Count(status.String(), "NET_DVR_Logout failed"))
	assert.Equal(t, CodeNetworkSendError, session.LastError())
}

func TestSessionUnclassifiedFailure(t *testing.T) {
	session, driver, status := newTestSession(t)
	loggedIn(t, session, driver)

	driver.EXPECT().CaptureJPEG(int32(0), DefaultChannel, defaultParams, "capture.jpg").Return(errors.New("boom"))
	driver.EXPECT().LastError().Return(CodeNoError)

	_, err := session.Capture("capture.jpg")
	assert.ErrorIs(t, err, ErrCapture)
	assert.Equal(t, CodeUnknown, CodeOf(err))
	assert.Equal(t, CodeUnknown, session.LastError())
	assert.Contains(t, status.String(), "NET_DVR_CaptureJPEGPicture failed, error code= 65535")
	assert.NotContains(t, status.String(), "Successful to capture")
}

func TestSessionStartPreviewRequiresLogin(t *testing.T) {
	session, driver, _ := newTestSession(t)
	initialized(t, session, driver)

	err := session.StartPreview(func(Frame) {})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, session.PreviewActive())
}

func TestSessionPreviewFailure(t *testing.T) {
	session, driver, _ := newTestSession(t)
	loggedIn(t, session, driver)

	driver.EXPECT().RealPlay(int32(0), DefaultChannel, gomock.Any()).
		Return(int32(-1), NewSDKError(CodeNoSupport, nil))

	err := session.StartPreview(func(Frame) {})
	assert.ErrorIs(t, err, ErrPreview)
	assert.Equal(t, CodeNoSupport, session.LastError())
	assert.False(t, session.PreviewActive())
}

func TestSessionShutdownReleasesEverything(t *testing.T) {
	session, driver, _ := newTestSession(t)
	loggedIn(t, session, driver)

	driver.EXPECT().RealPlay(int32(0), DefaultChannel, gomock.Any()).Return(int32(1), nil)
	require.NoError(t, session.StartPreview(func(Frame) {}))

	gomock.InOrder(
		driver.EXPECT().StopRealPlay(int32(1)).Return(nil),
		driver.EXPECT().Logout(int32(0)).Return(nil),
		driver.EXPECT().Cleanup().Return(nil),
	)
	session.Shutdown()

	assert.False(t, session.PreviewActive())
	assert.Equal(t, Uninitialized, session.State())

	// idempotent
	session.Shutdown()
}

func TestSessionShutdownWithoutInitialize(t *testing.T) {
	session, _, _ := newTestSession(t)

	session.Shutdown()
	_, ok := session.Handle()
	assert.False(t, ok)
}

func TestSessionWritesSDKLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := NewMockDriver(ctrl)
	dir := filepath.Join(t.TempDir(), "sdklog")
	session := NewSession(driver, WithSDKLog(SDKLogConfig{Level: SDKLogDebug, Dir: dir}))

	driver.EXPECT().Init().Return(nil)
	driver.EXPECT().Cleanup().Return(nil)

	require.NoError(t, session.Initialize())
	session.Shutdown()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "SDK initialized")
	assert.Contains(t, string(data), "SDK cleanup")
}
