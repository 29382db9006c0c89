// Package auth: security-package negotiation state for gateway channels.
package auth

import "errors"

var (
	ErrStepFailed = errors.New("auth step failed")
	ErrCancelled  = errors.New("gateway auth cancelled")
	ErrRejected   = errors.New("gateway auth rejected")
)

// Status of one authentication step.
type Status int

const (
	StatusContinue Status = iota // more rounds needed
	StatusComplete               // negotiation finished
	StatusFailed
)

// Package: pluggable security mechanism producing/consuming opaque tokens
// across rounds (e.g. NTLM).
type Package interface {
	// Name is the auth scheme as it appears in HTTP auth headers.
	Name() string
	// Step runs one negotiation step; input is nil on the first round.
	// The returned token is nil when the step produces none.
	Step(input []byte) (Status, []byte, error)
}

// Context capability flags.
const (
	FlagConfidentiality uint32 = 1 << iota
)

// Context drives a Package across one channel's rounds. It owns the pending
// output token until the framing layer consumes it; once complete, no further
// tokens are produced.
type Context struct {
	pkg      Package
	input    []byte
	output   []byte
	haveOut  bool
	complete bool
	flags    uint32
}

// NewContext binds pkg to a fresh context.
func NewContext(pkg Package) *Context {
	return &Context{pkg: pkg}
}

func (c *Context) SetFlags(flags uint32) { c.flags |= flags }

func (c *Context) Flags() uint32 { return c.flags }

// PackageName: scheme name for auth headers.
func (c *Context) PackageName() string { return c.pkg.Name() }

// Authenticate advances one step, consuming any stored input token.
// Reports StatusComplete without side effects once negotiation finished.
func (c *Context) Authenticate() (Status, error) {
	if c.complete {
		return StatusComplete, nil
	}
	in := c.input
	c.input = nil
	st, out, err := c.pkg.Step(in)
	if err != nil || st == StatusFailed {
		if err == nil {
			err = ErrStepFailed
		}
		return StatusFailed, err
	}
	if out != nil {
		c.output = out
		c.haveOut = true
	}
	if st == StatusComplete {
		c.complete = true
	}
	return st, nil
}

// TakeInput moves a received token into the context as the next step's input.
// The caller must not reuse the slice afterwards.
func (c *Context) TakeInput(token []byte) {
	c.input = token
}

// HaveOutput reports whether a produced token awaits transmission.
func (c *Context) HaveOutput() bool { return c.haveOut }

// TakeOutput hands the pending token to the caller and clears it.
func (c *Context) TakeOutput() []byte {
	out := c.output
	c.output = nil
	c.haveOut = false
	return out
}

// Complete reports whether negotiation finished.
func (c *Context) Complete() bool { return c.complete }
