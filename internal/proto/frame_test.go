package proto

import (
	"bufio"
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func parseRequest(t *testing.T, raw []byte) *http.Request {
	t.Helper()
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatalf("request head not parseable: %v\n%s", err, raw)
	}
	return req
}

func TestWriteRequestNegotiate(t *testing.T) {
	raw, err := WriteRequest(&FrameRequest{
		Method:        MethodInData,
		URI:           "/rpc/rpcproxy.dll?srv:3388",
		Host:          "gw.example.com",
		ContentLength: ContentLengthNegotiate,
		Auth:          &FrameAuth{Scheme: "NTLM", Token: "dG9rZW4="},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte("RPC_IN_DATA /rpc/rpcproxy.dll?srv:3388 HTTP/1.1\r\n")) {
		t.Fatalf("bad request line:\n%s", raw)
	}
	req := parseRequest(t, raw)
	if got := req.Header.Get("Content-Length"); got != "0" {
		t.Fatalf("content length %q", got)
	}
	if got := req.Header.Get("Authorization"); got != "NTLM dG9rZW4=" {
		t.Fatalf("authorization %q", got)
	}
	if got := req.Host; got != "gw.example.com" {
		t.Fatalf("host %q", got)
	}
}

func TestWriteRequestCompleteSignals(t *testing.T) {
	for _, cl := range []uint32{ContentLengthInComplete, ContentLengthOutComplete, ContentLengthOutReplacement} {
		raw, err := WriteRequest(&FrameRequest{Method: MethodOutData, URI: "/rpc/rpcproxy.dll", ContentLength: cl})
		if err != nil {
			t.Fatal(err)
		}
		want := "Content-Length: " + strconv.FormatUint(uint64(cl), 10) + "\r\n"
		if !strings.Contains(string(raw), want) {
			t.Fatalf("missing %q in:\n%s", want, raw)
		}
		if strings.Contains(string(raw), "Authorization") {
			t.Fatalf("unexpected auth header:\n%s", raw)
		}
	}
}

func TestWriteRequestInvalid(t *testing.T) {
	if _, err := WriteRequest(nil); err != ErrInvalidFrame {
		t.Fatalf("nil: %v", err)
	}
	if _, err := WriteRequest(&FrameRequest{URI: "/x"}); err != ErrInvalidFrame {
		t.Fatalf("no method: %v", err)
	}
	if _, err := WriteRequest(&FrameRequest{Method: MethodInData, URI: "/x", Auth: &FrameAuth{Token: "dG9rZW4="}}); err != ErrInvalidFrame {
		t.Fatalf("token without scheme: %v", err)
	}
}

func respWithHeaders(vals ...string) *http.Response {
	h := http.Header{}
	for _, v := range vals {
		h.Add("Www-Authenticate", v)
	}
	return &http.Response{Header: h}
}

func TestResponseAuthToken(t *testing.T) {
	tok, ok := ResponseAuthToken(respWithHeaders("NTLM dG9rZW4="), "NTLM")
	if !ok || tok != "dG9rZW4=" {
		t.Fatalf("got %q %v", tok, ok)
	}
}

func TestResponseAuthTokenSchemeOnly(t *testing.T) {
	tok, ok := ResponseAuthToken(respWithHeaders("NTLM"), "NTLM")
	if !ok || tok != "" {
		t.Fatalf("got %q %v", tok, ok)
	}
}

func TestResponseAuthTokenNoMatch(t *testing.T) {
	if _, ok := ResponseAuthToken(respWithHeaders("Basic realm=x"), "NTLM"); ok {
		t.Fatal("matched wrong scheme")
	}
	if _, ok := ResponseAuthToken(respWithHeaders("NTLMX dG9rZW4="), "NTLM"); ok {
		t.Fatal("matched scheme prefix")
	}
	if _, ok := ResponseAuthToken(&http.Response{Header: http.Header{}}, "NTLM"); ok {
		t.Fatal("matched empty response")
	}
}

func TestResponseAuthTokenPicksScheme(t *testing.T) {
	tok, ok := ResponseAuthToken(respWithHeaders("Negotiate b3RoZXI=", "ntlm dG9rZW4="), "NTLM")
	if !ok || tok != "dG9rZW4=" {
		t.Fatalf("got %q %v", tok, ok)
	}
}
