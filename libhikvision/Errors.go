package libhikvision

import (
	"errors"
	"fmt"
)

// ErrorCode is a device SDK error number as reported by the last failing call
type ErrorCode uint32

// SDK error numbers, numbered the way the device SDK reports them
const (
	CodeNoError            ErrorCode = 0
	CodePasswordError      ErrorCode = 1
	CodeNoEnoughPrivilege  ErrorCode = 2
	CodeNoInit             ErrorCode = 3
	CodeChannelError       ErrorCode = 4
	CodeOverMaxLink        ErrorCode = 5
	CodeNetworkFailConnect ErrorCode = 7
	CodeNetworkSendError   ErrorCode = 8
	CodeNetworkRecvError   ErrorCode = 9
	CodeNetworkRecvTimeout ErrorCode = 10
	CodeNetworkErrorData   ErrorCode = 11
	CodeOrderError         ErrorCode = 12
	CodeParameterError     ErrorCode = 17
	CodeNoSupport          ErrorCode = 23
	CodeCreateFileError    ErrorCode = 34
	CodeAllocResourceError ErrorCode = 41
	CodeUserNotExist       ErrorCode = 47
	CodeUserLocked         ErrorCode = 153

	// CodeUnknown is recorded for failures the driver could not classify
	CodeUnknown ErrorCode = 0xffff
)

var codeNames = map[ErrorCode]string{
	CodeNoError:            "NET_DVR_NOERROR",
	CodePasswordError:      "NET_DVR_PASSWORD_ERROR",
	CodeNoEnoughPrivilege:  "NET_DVR_NOENOUGHPRI",
	CodeNoInit:             "NET_DVR_NOINIT",
	CodeChannelError:       "NET_DVR_CHANNEL_ERROR",
	CodeOverMaxLink:        "NET_DVR_OVER_MAXLINK",
	CodeNetworkFailConnect: "NET_DVR_NETWORK_FAIL_CONNECT",
	CodeNetworkSendError:   "NET_DVR_NETWORK_SEND_ERROR",
	CodeNetworkRecvError:   "NET_DVR_NETWORK_RECV_ERROR",
	CodeNetworkRecvTimeout: "NET_DVR_NETWORK_RECV_TIMEOUT",
	CodeNetworkErrorData:   "NET_DVR_NETWORK_ERRORDATA",
	CodeOrderError:         "NET_DVR_ORDER_ERROR",
	CodeParameterError:     "NET_DVR_PARAMETER_ERROR",
	CodeNoSupport:          "NET_DVR_NOSUPPORT",
	CodeCreateFileError:    "NET_DVR_CREATEFILE_ERROR",
	CodeAllocResourceError: "NET_DVR_ALLOC_RESOURCE_ERROR",
	CodeUserNotExist:       "NET_DVR_USERNOTEXIST",
	CodeUserLocked:         "NET_DVR_USER_LOCKED",
	CodeUnknown:            "UNKNOWN_ERROR",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("NET_DVR_ERROR_%d", uint32(c))
}

// Failure kinds, match them with errors.Is
var (
	ErrInitialization       = errors.New("SDK initialization failed")
	ErrAuthentication       = errors.New("device login failed")
	ErrAlreadyAuthenticated = errors.New("already logged in")
	ErrNotAuthenticated     = errors.New("not login, cannot capture")
	ErrCapture              = errors.New("JPEG capture failed")
	ErrLogoutRefused        = errors.New("please stop live view firstly")
	ErrLogout               = errors.New("device logout failed")
	ErrPreview              = errors.New("live view failed")
)

// SDKError is returned by a Driver when a device call fails
type SDKError struct {
	Code ErrorCode
	Err  error
}

// NewSDKError creates an SDKError, err may be nil
func NewSDKError(code ErrorCode, err error) *SDKError {
	return &SDKError{Code: code, Err: err}
}

func (e *SDKError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err)
}

func (e *SDKError) Unwrap() error {
	return e.Err
}

// Error is a failed session operation together with the SDK error code it produced
type Error struct {
	Op   string
	Code ErrorCode
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed, error code= %d", e.Op, uint32(e.Code))
}

// Unwrap exposes both the failure kind and the driver error
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// CodeOf returns the SDK error code carried by err, CodeNoError if there is none
func CodeOf(err error) ErrorCode {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr.Code
	}
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.Code
	}
	return CodeNoError
}
