package libhikvision

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// DefaultChannel is the device channel pictures are captured from
const DefaultChannel = 1

const noHandle int32 = -1

// State is the lifecycle state of a Session
type State int

const (
	Uninitialized State = iota
	Initialized
	Authenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session holds the connection to a single device: one login handle,
// at most one live view, and the last SDK error code.
type Session struct {
	driver      Driver
	status      io.Writer
	log         zerolog.Logger
	sdkLogCfg   SDKLogConfig
	sdkLog      *SDKLog
	channel     int
	params      JPEGParams
	initialized bool

	address    string
	port       int
	userID     int32
	realHandle int32
	device     DeviceInfo
	lastError  ErrorCode
}

// Option configures a Session
type Option func(*Session)

// WithStatusWriter sets where human readable status lines are written
func WithStatusWriter(w io.Writer) Option {
	return func(s *Session) { s.status = w }
}

// WithLogger sets the diagnostic logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.log = logger }
}

// WithSDKLog sets the SDK log file configuration used by Initialize
func WithSDKLog(cfg SDKLogConfig) Option {
	return func(s *Session) { s.sdkLogCfg = cfg }
}

// WithChannel overrides the capture channel
func WithChannel(channel int) Option {
	return func(s *Session) { s.channel = channel }
}

// WithJPEGParams overrides quality and resolution of captured pictures
func WithJPEGParams(params JPEGParams) Option {
	return func(s *Session) { s.params = params }
}

// NewSession creates a Session on top of a device driver
func NewSession(driver Driver, opts ...Option) *Session {
	s := &Session{
		driver:     driver,
		status:     io.Discard,
		log:        zerolog.Nop(),
		sdkLogCfg:  SDKLogConfig{Level: SDKLogOff},
		channel:    DefaultChannel,
		params:     JPEGParams{Quality: QualityBest, Size: SizeAuto},
		userID:     noHandle,
		realHandle: noHandle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// Initialize prepares the SDK runtime and opens the SDK log file
func (s *Session) Initialize() error {
	if err := s.driver.Init(); err != nil {
		return s.fail("NET_DVR_Init", ErrInitialization, err)
	}
	s.initialized = true

	sdkLog, err := OpenSDKLog(s.sdkLogCfg)
	if err != nil {
		// the SDK log is diagnostics only
		s.log.Warn().Err(err).Msg("SDK log disabled")
		sdkLog = &SDKLog{logger: zerolog.Nop()}
	}
	s.sdkLog = sdkLog
	s.trace().Info().Str("log", sdkLog.Path()).Msg("SDK initialized")
	return nil
}

// Login authenticates against a device and keeps the returned handle
func (s *Session) Login(address string, port int, username, password string) (DeviceInfo, error) {
	if s.userID >= 0 {
		return DeviceInfo{}, ErrAlreadyAuthenticated
	}

	s.address = address
	s.port = port

	if address == "" || port < 1 || port > 65535 {
		err := s.fail("NET_DVR_Login_V30", ErrAuthentication,
			NewSDKError(CodeParameterError, fmt.Errorf("invalid device address %q port %d", address, port)))
		s.printf("Login device fail: ip:%s\n", address)
		return DeviceInfo{}, err
	}

	s.trace().Debug().Str("address", address).Int("port", port).Str("username", username).Msg("login")

	userID, device, err := s.driver.Login(address, port, username, password)
	if err != nil || userID < 0 {
		err = s.fail("NET_DVR_Login_V30", ErrAuthentication, err)
		s.printf("Login device fail: ip:%s\n", address)
		return DeviceInfo{}, err
	}

	s.userID = userID
	s.device = device
	s.printf("Login Success! ip:%s model:%s serial:%s\n", address, device.Model, device.SerialNumber)
	s.trace().Info().
		Int32("user_id", userID).
		Str("model", device.Model).
		Str("serial", device.SerialNumber).
		Str("firmware", device.FirmwareVersion).
		Msg("login success")
	return device, nil
}

// Capture stores a single JPEG picture of the capture channel at path
func (s *Session) Capture(path string) (string, error) {
	if s.userID < 0 {
		s.printf("not login, cannot capture\n")
		return "", ErrNotAuthenticated
	}

	s.trace().Debug().Int("channel", s.channel).Str("size", s.params.Size.String()).Str("path", path).Msg("capture")

	if err := s.driver.CaptureJPEG(s.userID, s.channel, s.params, path); err != nil {
		return "", s.fail("NET_DVR_CaptureJPEGPicture", ErrCapture, err)
	}

	s.printf("Successful to capture the JPEG file and the saved file is %s\n", path)
	s.trace().Info().Str("path", path).Msg("capture success")
	return path, nil
}

// StartPreview opens a live view of the capture channel, frames are handed to fn
func (s *Session) StartPreview(fn FrameFunc) error {
	if s.userID < 0 {
		return ErrNotAuthenticated
	}
	if s.realHandle >= 0 {
		return nil
	}

	realHandle, err := s.driver.RealPlay(s.userID, s.channel, fn)
	if err != nil || realHandle < 0 {
		return s.fail("NET_DVR_RealPlay_V40", ErrPreview, err)
	}
	s.realHandle = realHandle
	s.trace().Info().Int32("real_handle", realHandle).Msg("live view started")
	return nil
}

// StopPreview closes the live view
func (s *Session) StopPreview() error {
	if s.realHandle < 0 {
		return nil
	}
	if err := s.driver.StopRealPlay(s.realHandle); err != nil {
		return s.fail("NET_DVR_StopRealPlay", ErrPreview, err)
	}
	s.trace().Info().Int32("real_handle", s.realHandle).Msg("live view stopped")
	s.realHandle = noHandle
	return nil
}

// PreviewActive reports whether a live view is open
func (s *Session) PreviewActive() bool {
	return s.realHandle >= 0
}

// Logout ends the device session. It is refused while a live view is open.
func (s *Session) Logout() error {
	if s.realHandle >= 0 {
		s.printf("Please stop live view firstly\n")
		return ErrLogoutRefused
	}
	if s.userID < 0 {
		return nil
	}

	if err := s.driver.Logout(s.userID); err != nil {
		return s.fail("NET_DVR_Logout", ErrLogout, err)
	}

	s.trace().Info().Int32("user_id", s.userID).Msg("logout")
	s.userID = noHandle
	s.device = DeviceInfo{}
	return nil
}

// Shutdown releases everything the session still holds and tears down the SDK runtime.
// It is safe to call in any state.
func (s *Session) Shutdown() {
	if s.realHandle >= 0 {
		if err := s.StopPreview(); err != nil {
			s.log.Warn().Err(err).Msg("stopping live view on shutdown")
		}
		// the driver releases streams on cleanup
		s.realHandle = noHandle
	}

	if s.userID >= 0 {
		// shutdown failures go to the diagnostic log only, not the status output
		if err := s.driver.Logout(s.userID); err != nil {
			s.log.Warn().Err(err).Int32("user_id", s.userID).Msg("logout on shutdown")
		} else {
			s.trace().Info().Int32("user_id", s.userID).Msg("logout")
		}
		s.userID = noHandle
		s.device = DeviceInfo{}
	}

	if s.initialized {
		if err := s.driver.Cleanup(); err != nil {
			s.log.Warn().Err(err).Msg("SDK cleanup")
		}
		s.initialized = false
	}

	if s.sdkLog != nil {
		s.trace().Info().Msg("SDK cleanup")
		if err := s.sdkLog.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing SDK log")
		}
		s.sdkLog = nil
	}
}

// LastError returns the SDK error code of the most recent failing operation
func (s *Session) LastError() ErrorCode {
	return s.lastError
}

// Handle returns the login handle, ok is false when not logged in
func (s *Session) Handle() (int32, bool) {
	return s.userID, s.userID >= 0
}

// Device returns the metadata reported by the device on login
func (s *Session) Device() DeviceInfo {
	return s.device
}

// State returns the lifecycle state of the session
func (s *Session) State() State {
	switch {
	case s.userID >= 0:
		return Authenticated
	case s.initialized:
		return Initialized
	}
	return Uninitialized
}

// fail records the error code of a failed call, reports it and wraps it into an *Error
func (s *Session) fail(op string, kind, err error) error {
	code := CodeOf(err)
	if code == CodeNoError {
		code = s.driver.LastError()
	}
	if code == CodeNoError {
		code = CodeUnknown
	}
	s.lastError = code

	s.printf("%s failed, error code= %d\n", op, uint32(code))
	s.trace().Error().Err(err).Str("op", op).Uint32("code", uint32(code)).Str("name", code.String()).Msg("SDK call failed")

	return &Error{Op: op, Code: code, Kind: kind, Err: err}
}

func (s *Session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.status, format, args...)
}

// trace returns the SDK log, falling back to the diagnostic logger before Initialize
func (s *Session) trace() *zerolog.Logger {
	if s.sdkLog != nil {
		l := s.sdkLog.Logger()
		return &l
	}
	return &s.log
}
