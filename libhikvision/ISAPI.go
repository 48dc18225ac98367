package libhikvision

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/icholy/digest"
	"github.com/rs/zerolog"
)

// DefaultISAPITimeout bounds a single request to the device
const DefaultISAPITimeout = 10 * time.Second

// maximum accepted size of a single picture
var maxPictureSize = 32 << 20

const (
	pathDeviceInfo  = "/ISAPI/System/deviceInfo"
	pathPicture     = "/ISAPI/Streaming/channels/%d/picture"
	pathHTTPPreview = "/ISAPI/Streaming/channels/%d/httpPreview"
)

// ISAPIOptions configures an ISAPIDriver
type ISAPIOptions struct {
	Scheme  string
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// ISAPIDriver implements Driver on top of the device's HTTP interface (ISAPI)
// using digest authentication.
type ISAPIDriver struct {
	opts ISAPIOptions
	log  zerolog.Logger

	mu             sync.Mutex
	initialized    bool
	lastError      ErrorCode
	nextUserID     int32
	users          map[int32]*isapiUser
	nextRealHandle int32
	streams        map[int32]*liveStream
}

type isapiUser struct {
	base      *url.URL
	transport *http.Transport
	client    *http.Client
	stream    *http.Client
}

// responseStatus is the error document returned by the device
type responseStatus struct {
	StatusCode    int    `xml:"statusCode"`
	StatusString  string `xml:"statusString"`
	SubStatusCode string `xml:"subStatusCode"`
}

// NewISAPIDriver creates an uninitialized driver, call Init before use
func NewISAPIDriver(opts ISAPIOptions) *ISAPIDriver {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "isapi").Logger()
	}
	return &ISAPIDriver{
		opts: opts,
		log:  log,
	}
}

// Init validates the options and prepares the handle tables
func (d *ISAPIDriver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opts.Scheme == "" {
		d.opts.Scheme = "http"
	}
	if d.opts.Scheme != "http" && d.opts.Scheme != "https" {
		return d.setError(NewSDKError(CodeParameterError, fmt.Errorf("unsupported scheme %q", d.opts.Scheme)))
	}
	if d.opts.Timeout <= 0 {
		d.opts.Timeout = DefaultISAPITimeout
	}

	d.users = make(map[int32]*isapiUser)
	d.streams = make(map[int32]*liveStream)
	d.initialized = true
	d.lastError = CodeNoError
	return nil
}

// Cleanup stops all live views and forgets every login
func (d *ISAPIDriver) Cleanup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil
	}
	for handle, stream := range d.streams {
		stream.stop()
		delete(d.streams, handle)
	}
	for userID, user := range d.users {
		user.transport.CloseIdleConnections()
		delete(d.users, userID)
	}
	d.initialized = false
	d.lastError = CodeNoError
	return nil
}

// Login reads the device information using the given credentials and allocates a handle
func (d *ISAPIDriver) Login(address string, port int, username, password string) (int32, DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return noHandle, DeviceInfo{}, d.setError(NewSDKError(CodeNoInit, nil))
	}

	user := d.newUser(address, port, username, password)

	var info DeviceInfo
	if err := user.getXML(pathDeviceInfo, &info); err != nil {
		user.transport.CloseIdleConnections()
		return noHandle, DeviceInfo{}, d.setError(err)
	}

	userID := d.nextUserID
	d.nextUserID++
	d.users[userID] = user
	d.lastError = CodeNoError

	d.log.Debug().Int32("user_id", userID).Str("host", user.base.Host).Str("model", info.Model).Msg("logged in")
	return userID, info, nil
}

// Logout releases a login handle
func (d *ISAPIDriver) Logout(userID int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return d.setError(NewSDKError(CodeNoInit, nil))
	}
	user, ok := d.users[userID]
	if !ok {
		return d.setError(NewSDKError(CodeUserNotExist, fmt.Errorf("unknown user id %d", userID)))
	}

	for handle, stream := range d.streams {
		if stream.userID == userID {
			stream.stop()
			delete(d.streams, handle)
		}
	}
	user.transport.CloseIdleConnections()
	delete(d.users, userID)
	d.lastError = CodeNoError
	return nil
}

// CaptureJPEG fetches a snapshot of the channel's main stream and writes it to path
func (d *ISAPIDriver) CaptureJPEG(userID int32, channel int, params JPEGParams, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.lookup(userID, channel)
	if err != nil {
		return d.setError(err)
	}

	query := url.Values{}
	if width, height, ok := params.Size.Resolution(); ok {
		query.Set("videoResolutionWidth", strconv.Itoa(width))
		query.Set("videoResolutionHeight", strconv.Itoa(height))
	}

	data, err := user.get(fmt.Sprintf(pathPicture, mainStream(channel)), query)
	if err != nil {
		var sdkErr *SDKError
		if errors.As(err, &sdkErr) && sdkErr.Code == CodeNoSupport {
			// an unknown stream id means the channel does not exist
			sdkErr.Code = CodeChannelError
		}
		return d.setError(err)
	}

	info, err := ProbeJPEG(data)
	if err != nil {
		return d.setError(NewSDKError(CodeNetworkErrorData, fmt.Errorf("device returned no picture: %w", err)))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return d.setError(NewSDKError(CodeCreateFileError, err))
	}

	d.log.Debug().
		Int("channel", channel).
		Int("width", info.Width).
		Int("height", info.Height).
		Int("bytes", len(data)).
		Str("path", path).
		Msg("picture saved")
	d.lastError = CodeNoError
	return nil
}

// RealPlay opens the MJPEG preview of the channel's sub stream
func (d *ISAPIDriver) RealPlay(userID int32, channel int, fn FrameFunc) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.lookup(userID, channel)
	if err != nil {
		return noHandle, d.setError(err)
	}
	if fn == nil {
		return noHandle, d.setError(NewSDKError(CodeParameterError, errors.New("no frame handler")))
	}

	stream, err := openLiveStream(user, fmt.Sprintf(pathHTTPPreview, subStream(channel)), fn, d.log)
	if err != nil {
		return noHandle, d.setError(err)
	}
	stream.userID = userID

	realHandle := d.nextRealHandle
	d.nextRealHandle++
	d.streams[realHandle] = stream
	d.lastError = CodeNoError
	return realHandle, nil
}

// StopRealPlay closes a live view and waits for its reader to finish
func (d *ISAPIDriver) StopRealPlay(realHandle int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return d.setError(NewSDKError(CodeNoInit, nil))
	}
	stream, ok := d.streams[realHandle]
	if !ok {
		return d.setError(NewSDKError(CodeParameterError, fmt.Errorf("unknown live view handle %d", realHandle)))
	}
	stream.stop()
	delete(d.streams, realHandle)
	d.lastError = CodeNoError
	return nil
}

// LastError returns the error code of the last call
func (d *ISAPIDriver) LastError() ErrorCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastError
}

func (d *ISAPIDriver) lookup(userID int32, channel int) (*isapiUser, error) {
	if !d.initialized {
		return nil, NewSDKError(CodeNoInit, nil)
	}
	user, ok := d.users[userID]
	if !ok {
		return nil, NewSDKError(CodeUserNotExist, fmt.Errorf("unknown user id %d", userID))
	}
	if channel < 1 {
		return nil, NewSDKError(CodeChannelError, fmt.Errorf("invalid channel %d", channel))
	}
	return user, nil
}

func (d *ISAPIDriver) setError(err error) error {
	var sdkErr *SDKError
	if !errors.As(err, &sdkErr) {
		sdkErr = NewSDKError(CodeNetworkRecvError, err)
	}
	d.lastError = sdkErr.Code
	d.log.Debug().Err(err).Uint32("code", uint32(sdkErr.Code)).Msg("call failed")
	return sdkErr
}

func (d *ISAPIDriver) newUser(address string, port int, username, password string) *isapiUser {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: d.opts.Timeout,
		MaxIdleConnsPerHost: 2,
	}
	auth := &digest.Transport{
		Username:  username,
		Password:  password,
		Transport: transport,
	}
	return &isapiUser{
		base: &url.URL{
			Scheme: d.opts.Scheme,
			Host:   net.JoinHostPort(address, strconv.Itoa(port)),
		},
		transport: transport,
		client:    &http.Client{Transport: auth, Timeout: d.opts.Timeout},
		// a live view never completes, only the connect is bounded
		stream: &http.Client{Transport: auth},
	}
}

func (u *isapiUser) url(path string, query url.Values) string {
	ref := *u.base
	ref.Path = path
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return ref.String()
}

// get performs a GET request and returns the body of a successful response
func (u *isapiUser) get(path string, query url.Values) ([]byte, error) {
	resp, err := u.client.Get(u.url(path, query))
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxPictureSize)+1))
	if err != nil {
		return nil, transportError(err)
	}
	if len(data) > maxPictureSize {
		return nil, NewSDKError(CodeNetworkErrorData, fmt.Errorf("response body exceeds %d bytes", maxPictureSize))
	}
	return data, nil
}

func (u *isapiUser) getXML(path string, v interface{}) error {
	data, err := u.get(path, nil)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return NewSDKError(CodeNetworkErrorData, fmt.Errorf("decoding %s: %w", path, err))
	}
	return nil
}

func transportError(err error) *SDKError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewSDKError(CodeNetworkRecvTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewSDKError(CodeNetworkRecvTimeout, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return NewSDKError(CodeNetworkFailConnect, err)
	}
	return NewSDKError(CodeNetworkRecvError, err)
}

func statusError(resp *http.Response) *SDKError {
	err := fmt.Errorf("device responded %s", resp.Status)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var status responseStatus
	if xml.Unmarshal(body, &status) == nil && status.StatusString != "" {
		err = fmt.Errorf("device responded %s: %s (%s)", resp.Status, status.StatusString, status.SubStatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if status.SubStatusCode == "userLocked" {
			return NewSDKError(CodeUserLocked, err)
		}
		return NewSDKError(CodePasswordError, err)
	case http.StatusForbidden:
		return NewSDKError(CodeNoEnoughPrivilege, err)
	case http.StatusNotFound, http.StatusNotImplemented:
		return NewSDKError(CodeNoSupport, err)
	case http.StatusServiceUnavailable:
		return NewSDKError(CodeOverMaxLink, err)
	case http.StatusBadRequest:
		return NewSDKError(CodeParameterError, err)
	}
	return NewSDKError(CodeNetworkErrorData, err)
}

// stream ids: channel 1 main stream is 101, sub stream 102
func mainStream(channel int) int {
	return channel*100 + 1
}

func subStream(channel int) int {
	return channel*100 + 2
}
