package proto

// Channel HTTP methods on the RPC proxy.
const (
	MethodInData  = "RPC_IN_DATA"
	MethodOutData = "RPC_OUT_DATA"
)

// Content-Length signals (wire compatibility constants, must match the
// gateway exactly; the value is a tunnel-state signal, not a body byte count).
const (
	// ContentLengthNegotiate while auth rounds are still in progress.
	ContentLengthNegotiate = 0
	// ContentLengthInComplete once the in channel finishes auth: tells the
	// gateway an effectively unbounded stream of tunneled data follows.
	ContentLengthInComplete = 0x40000000
	// ContentLengthOutComplete trailing padding for a fresh out channel.
	ContentLengthOutComplete = 76
	// ContentLengthOutReplacement trailing padding for an out channel that
	// replaces a previously established one.
	ContentLengthOutReplacement = 120
)

// MaxTokenSize caps decoded auth tokens; a token travels as one header value.
const MaxTokenSize = 1024 * 1024
