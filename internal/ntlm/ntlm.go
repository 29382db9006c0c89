// Package ntlm implements the NTLM (NTLMv2) client side of the gateway
// authentication exchange: it produces the Negotiate and Authenticate
// messages and consumes the server Challenge.
package ntlm

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/crypto/md4"

	"dev.c0redev.rpctun/internal/auth"
)

// SchemeName as it appears in HTTP auth headers.
const SchemeName = "NTLM"

var ErrMalformedChallenge = errors.New("malformed NTLM challenge")

var signature = []byte("NTLMSSP\x00")

const (
	msgNegotiate    = 1
	msgChallenge    = 2
	msgAuthenticate = 3
)

// Negotiate flags (MS-NLMP 2.2.2.5).
const (
	flagUnicode          = 0x00000001
	flagRequestTarget    = 0x00000004
	flagNTLM             = 0x00000200
	flagAnonymous        = 0x00000800
	flagAlwaysSign       = 0x00008000
	flagExtendedSecurity = 0x00080000
	flag128              = 0x20000000
	flag56               = 0x80000000
)

// AV pair ids in the challenge target info.
const (
	avEOL             = 0x0000
	avTimestamp       = 0x0007
	avTargetName      = 0x0009
	avChannelBindings = 0x000a
)

type state int

const (
	stateNegotiate state = iota
	stateChallenge
	stateDone
)

// Client implements auth.Package. One Client drives one channel's exchange;
// it is not safe for concurrent use and not reusable across handshakes.
type Client struct {
	identity *auth.Identity // nil = anonymous
	spn      string         // target service principal, e.g. "HTTP/gw.example.com"
	bindings []byte         // TLS channel-binding application data, nil = none
	state    state

	rand io.Reader
	now  func() time.Time
}

// New builds a client bound to identity (nil for anonymous negotiation),
// the target SPN and optional TLS channel-binding data.
func New(identity *auth.Identity, spn string, bindings []byte) *Client {
	return &Client{
		identity: identity,
		spn:      spn,
		bindings: bindings,
		rand:     rand.Reader,
		now:      time.Now,
	}
}

func (c *Client) Name() string { return SchemeName }

// Step implements auth.Package: Negotiate out, Challenge in, Authenticate out.
func (c *Client) Step(input []byte) (auth.Status, []byte, error) {
	switch c.state {
	case stateNegotiate:
		c.state = stateChallenge
		return auth.StatusContinue, c.negotiate(), nil
	case stateChallenge:
		msg, err := c.authenticate(input)
		if err != nil {
			return auth.StatusFailed, nil, err
		}
		c.state = stateDone
		return auth.StatusComplete, msg, nil
	default:
		return auth.StatusComplete, nil, nil
	}
}

func (c *Client) flags() uint32 {
	return flagUnicode | flagRequestTarget | flagNTLM | flagAlwaysSign |
		flagExtendedSecurity | flag128 | flag56
}

// negotiate builds the type 1 message (empty domain and workstation).
func (c *Client) negotiate() []byte {
	b := make([]byte, 32)
	copy(b, signature)
	binary.LittleEndian.PutUint32(b[8:], msgNegotiate)
	binary.LittleEndian.PutUint32(b[12:], c.flags())
	putFields(b[16:], 0, 32)
	putFields(b[24:], 0, 32)
	return b
}

// authenticate consumes the type 2 challenge and builds the type 3 message.
func (c *Client) authenticate(challenge []byte) ([]byte, error) {
	ch, err := parseChallenge(challenge)
	if err != nil {
		return nil, err
	}
	if c.identity == nil {
		// anonymous: 1-byte LM response, no NT response
		return buildAuthenticate(c.flags()|flagAnonymous, []byte{0}, nil, "", "", nil), nil
	}
	targetInfo, timestamp := c.buildTargetInfo(ch.targetInfo)
	var clientChallenge [8]byte
	if _, err := io.ReadFull(c.rand, clientChallenge[:]); err != nil {
		return nil, fmt.Errorf("client challenge: %w", err)
	}
	hash := ntowfv2(c.identity.User, c.identity.Domain, c.identity.Password)
	nt := ntlmv2Response(hash, ch.serverChallenge[:], clientChallenge[:], timestamp, targetInfo)
	lm := make([]byte, 24) // LMv2 not sent; zero padding per modern clients
	return buildAuthenticate(c.flags(), lm, nt, c.identity.Domain, c.identity.User, nil), nil
}

type challenge struct {
	serverChallenge [8]byte
	targetInfo      []byte
	flags           uint32
}

func parseChallenge(b []byte) (*challenge, error) {
	if len(b) < 48 || !bytes.Equal(b[:8], signature) {
		return nil, ErrMalformedChallenge
	}
	if binary.LittleEndian.Uint32(b[8:]) != msgChallenge {
		return nil, ErrMalformedChallenge
	}
	ch := &challenge{flags: binary.LittleEndian.Uint32(b[20:])}
	copy(ch.serverChallenge[:], b[24:32])
	infoLen, infoOff := getFields(b[40:])
	if infoLen > 0 {
		if int(infoOff)+int(infoLen) > len(b) {
			return nil, ErrMalformedChallenge
		}
		ch.targetInfo = append([]byte(nil), b[infoOff:infoOff+uint32(infoLen)]...)
	}
	return ch, nil
}

// buildTargetInfo echoes the server pairs (minus EOL) and appends the SPN and
// channel-binding pairs. Returns the rebuilt block and the timestamp to use
// for the response (server MsvAvTimestamp when present, else current time).
func (c *Client) buildTargetInfo(serverInfo []byte) (info []byte, timestamp uint64) {
	var out []byte
	for off := 0; off+4 <= len(serverInfo); {
		id := binary.LittleEndian.Uint16(serverInfo[off:])
		ln := int(binary.LittleEndian.Uint16(serverInfo[off+2:]))
		if off+4+ln > len(serverInfo) {
			break // truncated pair, stop echoing
		}
		if id == avEOL {
			break
		}
		if id == avTimestamp && ln == 8 {
			timestamp = binary.LittleEndian.Uint64(serverInfo[off+4:])
		}
		out = append(out, serverInfo[off:off+4+ln]...)
		off += 4 + ln
	}
	if timestamp == 0 {
		timestamp = filetime(c.now())
	}
	if c.spn != "" {
		out = appendAvPair(out, avTargetName, utf16le(c.spn))
	}
	if c.bindings != nil {
		out = appendAvPair(out, avChannelBindings, channelBindingsHash(c.bindings))
	}
	out = appendAvPair(out, avEOL, nil)
	return out, timestamp
}

// buildAuthenticate lays out the type 3 message: 64-byte header, then
// domain, user, workstation, LM response, NT response, session key.
func buildAuthenticate(flags uint32, lm, nt []byte, domain, user string, sessionKey []byte) []byte {
	domainB := utf16le(domain)
	userB := utf16le(user)
	var workstationB []byte

	b := make([]byte, 0, 64+len(domainB)+len(userB)+len(lm)+len(nt)+len(sessionKey))
	b = append(b, signature...)
	b = binary.LittleEndian.AppendUint32(b, msgAuthenticate)
	b = append(b, make([]byte, 52)...) // field descriptors + flags, filled below
	binary.LittleEndian.PutUint32(b[60:], flags)

	off := uint32(64)
	place := func(fieldOff int, payload []byte) {
		putFields(b[fieldOff:], uint16(len(payload)), off)
		off += uint32(len(payload))
	}
	place(28, domainB)
	place(36, userB)
	place(44, workstationB)
	place(12, lm)
	place(20, nt)
	place(52, sessionKey)

	b = append(b, domainB...)
	b = append(b, userB...)
	b = append(b, workstationB...)
	b = append(b, lm...)
	b = append(b, nt...)
	b = append(b, sessionKey...)
	return b
}

// ntowfv2 = HMAC-MD5(MD4(UTF16(password)), UTF16(UPPER(user) + domain)).
func ntowfv2(user, domain, password string) []byte {
	h := md4.New()
	h.Write(utf16le(password))
	mac := hmac.New(md5.New, h.Sum(nil))
	mac.Write(utf16le(strings.ToUpper(user) + domain))
	return mac.Sum(nil)
}

// ntlmv2Response = NTProofStr || temp (MS-NLMP 3.3.2).
func ntlmv2Response(hash, serverChallenge, clientChallenge []byte, timestamp uint64, targetInfo []byte) []byte {
	temp := make([]byte, 0, 28+len(targetInfo)+4)
	temp = append(temp, 1, 1, 0, 0, 0, 0, 0, 0) // versions + Z(6)
	temp = binary.LittleEndian.AppendUint64(temp, timestamp)
	temp = append(temp, clientChallenge...)
	temp = append(temp, 0, 0, 0, 0)
	temp = append(temp, targetInfo...)
	temp = append(temp, 0, 0, 0, 0)

	mac := hmac.New(md5.New, hash)
	mac.Write(serverChallenge)
	mac.Write(temp)
	return append(mac.Sum(nil), temp...)
}

// channelBindingsHash: MD5 over a gss_channel_bindings_struct whose only
// populated member is the application data (RFC 5929 material).
func channelBindingsHash(appData []byte) []byte {
	b := make([]byte, 20+len(appData))
	binary.LittleEndian.PutUint32(b[16:], uint32(len(appData)))
	copy(b[20:], appData)
	sum := md5.Sum(b)
	return sum[:]
}

func appendAvPair(b []byte, id uint16, value []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, id)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(value)))
	return append(b, value...)
}

// putFields writes a (len, maxlen, offset) payload descriptor.
func putFields(b []byte, length uint16, offset uint32) {
	binary.LittleEndian.PutUint16(b, length)
	binary.LittleEndian.PutUint16(b[2:], length)
	binary.LittleEndian.PutUint32(b[4:], offset)
}

func getFields(b []byte) (length uint16, offset uint32) {
	return binary.LittleEndian.Uint16(b), binary.LittleEndian.Uint32(b[4:])
}

func utf16le(s string) []byte {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u))
	for i, r := range u {
		binary.LittleEndian.PutUint16(b[2*i:], r)
	}
	return b
}

// filetime converts t to a Windows FILETIME (100ns ticks since 1601-01-01).
func filetime(t time.Time) uint64 {
	return uint64(t.Unix()+11644473600)*10_000_000 + uint64(t.Nanosecond())/100
}
