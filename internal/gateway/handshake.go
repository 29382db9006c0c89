package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"dev.c0redev.rpctun/internal/auth"
	"dev.c0redev.rpctun/internal/proto"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTransportWrite  = errors.New("transport write failed")
)

// SendInChannelRequest runs the send half of one in-channel round: one auth
// step, then a request whose Content-Length signals negotiation (0) or, once
// the step completes, the unbounded-stream sentinel.
func SendInChannelRequest(ch *Channel) error {
	if ch == nil || ch.Auth == nil || ch.Conn == nil {
		return ErrInvalidArgument
	}
	st, err := ch.Auth.Authenticate()
	if err != nil {
		return err
	}
	var contentLength uint32 = proto.ContentLengthNegotiate
	if st == auth.StatusComplete {
		contentLength = proto.ContentLengthInComplete
	}
	return sendAuthRequest(ch, proto.MethodInData, contentLength)
}

// SendOutChannelRequest: as the in-channel send, but a completed round
// declares the fixed trailing-padding length for the out stream, picked by
// whether this channel replaces an earlier one.
func SendOutChannelRequest(ch *Channel) error {
	if ch == nil || ch.Auth == nil || ch.Conn == nil {
		return ErrInvalidArgument
	}
	st, err := ch.Auth.Authenticate()
	if err != nil {
		return err
	}
	var contentLength uint32 = proto.ContentLengthNegotiate
	if st == auth.StatusComplete {
		if ch.Replacement {
			contentLength = proto.ContentLengthOutReplacement
		} else {
			contentLength = proto.ContentLengthOutComplete
		}
	}
	return sendAuthRequest(ch, proto.MethodOutData, contentLength)
}

// sendAuthRequest frames and writes one round's request. The request carries
// an Authorization header exactly when the context holds a pending token.
func sendAuthRequest(ch *Channel, method string, contentLength uint32) error {
	req := &proto.FrameRequest{
		Method:        method,
		URI:           ch.URI,
		Host:          ch.Host,
		ContentLength: contentLength,
	}
	if ch.Auth.HaveOutput() {
		req.Auth = &proto.FrameAuth{
			Scheme: ch.Auth.PackageName(),
			Token:  proto.EncodeToken(ch.Auth.TakeOutput()),
		}
	}
	raw, err := proto.WriteRequest(req)
	if err != nil {
		return err
	}
	n, err := ch.Conn.Write(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportWrite, err)
	}
	if n <= 0 {
		return fmt.Errorf("%w: wrote %d bytes", ErrTransportWrite, n)
	}
	return nil
}

// RecvInChannelResponse feeds the response's auth token (if any) back into
// the in channel's security context.
func RecvInChannelResponse(ch *Channel, resp *http.Response) error {
	return recvAuthResponse(ch, resp)
}

// RecvOutChannelResponse: out-channel counterpart of RecvInChannelResponse.
func RecvOutChannelResponse(ch *Channel, resp *http.Response) error {
	return recvAuthResponse(ch, resp)
}

// recvAuthResponse extracts and decodes the token for the channel's scheme.
// No matching header is not an error; an empty token is a no-op. A decoded
// token is moved into the context exactly once, all other paths drop it.
func recvAuthResponse(ch *Channel, resp *http.Response) error {
	if ch == nil || resp == nil || ch.Auth == nil {
		return ErrInvalidArgument
	}
	enc, ok := proto.ResponseAuthToken(resp, ch.Auth.PackageName())
	if !ok {
		return nil
	}
	token, err := proto.DecodeToken(enc)
	if err != nil {
		return err
	}
	if len(token) == 0 {
		return nil
	}
	ch.Auth.TakeInput(token)
	return nil
}

// IsHandshakeComplete reports whether the channel finished negotiating and
// may be treated as a raw data tunnel.
func IsHandshakeComplete(ch *Channel) bool {
	return ch != nil && ch.Auth != nil && ch.Auth.Complete()
}
