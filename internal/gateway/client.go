package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"

	"dev.c0redev.rpctun/internal/auth"
)

// DialFunc opens one transport conn to the gateway and returns it plus its
// TLS channel-binding data (nil when the transport exposes none).
type DialFunc func(ctx context.Context) (net.Conn, []byte, error)

const (
	defaultRetryMin = time.Second
	defaultRetryMax = 30 * time.Second
)

// Client bootstraps and owns one virtual connection to the gateway.
type Client struct {
	Settings   *Settings
	Dial       DialFunc
	NewPackage PackageFactory
	Decide     DecideFunc

	// out-channel replacement retry pacing; zero = defaults
	RetryMin time.Duration
	RetryMax time.Duration

	Cookie uuid.UUID // virtual connection cookie

	mu  sync.Mutex
	in  *Channel
	out *Channel
}

// Connect opens and authenticates both channels; the two handshakes share no
// state and run concurrently.
func (c *Client) Connect(ctx context.Context) error {
	if c.Settings == nil || c.Dial == nil || c.NewPackage == nil {
		return ErrInvalidArgument
	}
	c.Cookie = uuid.New()

	var wg sync.WaitGroup
	chans := make([]*Channel, 2)
	errs := make([]error, 2)
	for i, role := range []Role{RoleIn, RoleOut} {
		wg.Add(1)
		go func(i int, role Role) {
			defer wg.Done()
			chans[i], errs[i] = c.openChannel(ctx, role, false)
		}(i, role)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			for _, ch := range chans {
				if ch != nil {
					AuthUninit(ch)
					ch.Close()
				}
			}
			return fmt.Errorf("%s channel: %w", []Role{RoleIn, RoleOut}[i], err)
		}
	}
	c.mu.Lock()
	c.in, c.out = chans[0], chans[1]
	c.mu.Unlock()
	return nil
}

// openChannel dials, initializes auth and runs the handshake to completion.
func (c *Client) openChannel(ctx context.Context, role Role, replacement bool) (*Channel, error) {
	conn, bindings, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	ch := NewChannel(role, conn, c.Settings.URI, c.Settings.Hostname)
	ch.Replacement = replacement
	if err := AuthInit(ch, c.Settings, c.Decide, c.NewPackage, bindings); err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.handshake(ch); err != nil {
		AuthUninit(ch)
		conn.Close()
		return nil, err
	}
	return ch, nil
}

// handshake drives rounds until the package reports completion. A round is
// send -> blocking read -> feed; the completing request awaits no auth reply.
func (c *Client) handshake(ch *Channel) error {
	send, recv := SendInChannelRequest, RecvInChannelResponse
	if ch.Role == RoleOut {
		send, recv = SendOutChannelRequest, RecvOutChannelResponse
	}
	for {
		if err := send(ch); err != nil {
			return err
		}
		if IsHandshakeComplete(ch) {
			return nil
		}
		resp, err := http.ReadResponse(ch.Reader(), nil)
		if err != nil {
			return fmt.Errorf("read gateway response: %w", err)
		}
		err = recv(ch, resp)
		resp.Body.Close()
		if err != nil {
			return err
		}
	}
}

// ReplaceOutChannel opens a successor out channel when the gateway recycles
// the out stream. Transport failures are retried with backoff; auth
// failures and cancellation are not.
func (c *Client) ReplaceOutChannel(ctx context.Context) error {
	b := &backoff.Backoff{Min: c.retryMin(), Max: c.retryMax(), Jitter: true}
	for {
		ch, err := c.openChannel(ctx, RoleOut, true)
		if err == nil {
			c.mu.Lock()
			old := c.out
			c.out = ch
			c.mu.Unlock()
			if old != nil {
				AuthUninit(old)
				old.Close()
			}
			return nil
		}
		if errors.Is(err, auth.ErrCancelled) || errors.Is(err, auth.ErrRejected) ||
			errors.Is(err, auth.ErrStepFailed) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
}

func (c *Client) retryMin() time.Duration {
	if c.RetryMin > 0 {
		return c.RetryMin
	}
	return defaultRetryMin
}

func (c *Client) retryMax() time.Duration {
	if c.RetryMax > 0 {
		return c.RetryMax
	}
	return defaultRetryMax
}

// InConn returns the in channel's conn once its handshake completed; the
// caller streams tunneled data over it. RPC payloads are not interpreted.
func (c *Client) InConn() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.in == nil {
		return nil
	}
	return c.in.Conn
}

// OutConn returns the out channel's conn once its handshake completed.
func (c *Client) OutConn() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return nil
	}
	return c.out.Conn
}

// Close tears down both channels; safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	in, out := c.in, c.out
	c.in, c.out = nil, nil
	c.mu.Unlock()
	var err error
	for _, ch := range []*Channel{in, out} {
		if ch == nil {
			continue
		}
		AuthUninit(ch)
		if cerr := ch.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
