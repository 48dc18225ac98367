package libhikvision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// maximum accepted size of a single preview frame
const maxFrameSize = 8 << 20

// liveStream reads an MJPEG preview and relays every frame to a FrameFunc
type liveStream struct {
	userID int32
	cancel context.CancelFunc
	done   chan struct{}
	log    zerolog.Logger
}

func openLiveStream(user *isapiUser, path string, fn FrameFunc, log zerolog.Logger) (*liveStream, error) {
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, user.url(path, nil), nil)
	if err != nil {
		cancel()
		return nil, NewSDKError(CodeParameterError, err)
	}

	resp, err := user.stream.Do(req)
	if err != nil {
		cancel()
		return nil, transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, statusError(resp)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return nil, NewSDKError(CodeNetworkErrorData, fmt.Errorf("unexpected preview content type %q", resp.Header.Get("Content-Type")))
	}

	stream := &liveStream{
		cancel: cancel,
		done:   make(chan struct{}),
		log:    log,
	}
	go stream.relay(ctx, resp.Body, params["boundary"], fn)
	return stream, nil
}

func (s *liveStream) relay(ctx context.Context, body io.ReadCloser, boundary string, fn FrameFunc) {
	defer close(s.done)
	defer body.Close()

	reader := multipart.NewReader(body, boundary)
	var seq uint32

	for {
		part, err := reader.NextPart()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				s.log.Warn().Err(err).Msg("live view interrupted")
			}
			return
		}

		data, err := io.ReadAll(io.LimitReader(part, maxFrameSize+1))
		part.Close()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("reading live view frame")
			}
			return
		}
		if len(data) > maxFrameSize {
			s.log.Warn().Int("limit", maxFrameSize).Msg("skipping oversized preview frame")
			continue
		}

		info, err := ProbeJPEG(data)
		if err != nil {
			s.log.Debug().Err(err).Int("bytes", len(data)).Msg("skipping preview part")
			continue
		}

		seq++
		fn(Frame{
			Seq:    seq,
			Data:   data,
			Width:  info.Width,
			Height: info.Height,
		})
	}
}

// stop cancels the preview request and waits for the reader to return
func (s *liveStream) stop() {
	s.cancel()
	<-s.done
}
