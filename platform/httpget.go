package platform

import (
	"errors"
	"net"
	"strings"
	"time"

	"envmon-go/errcode"
)

// httpGet performs a minimal HTTP/1.0 GET and returns the body. On the
// rp2 build the net package is served by netdev; on the host it is the
// standard library. Redirects and chunked encoding are not handled; the
// endpoints the device talks to use plain 200 responses.
func httpGet(endpoint string, timeout time.Duration) ([]byte, error) {
	host, path, err := splitURL(endpoint)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", host)
	if err != nil {
		return nil, &errcode.E{C: errcode.NetTransport, Op: "http.dial", Err: err}
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	req := "GET " + path + " HTTP/1.0\r\nHost: " + hostOnly(host) + "\r\nConnection: close\r\n\r\n"
	if _, err := conn.Write([]byte(req)); err != nil {
		return nil, &errcode.E{C: errcode.NetTransport, Op: "http.send", Err: err}
	}

	var resp []byte
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
		}
		if err != nil {
			break // io.EOF ends a Connection: close response
		}
		if len(resp) > 16<<10 {
			return nil, &errcode.E{C: errcode.InvalidPayload, Op: "http.recv", Msg: "response too large"}
		}
	}

	head, body, ok := cutBody(resp)
	if !ok {
		return nil, &errcode.E{C: errcode.NetTransport, Op: "http.recv", Msg: "truncated response"}
	}
	if !strings.Contains(head, " 200 ") {
		return nil, &errcode.E{C: errcode.NetTransport, Op: "http.status", Msg: firstLine(head)}
	}
	return body, nil
}

// splitURL reduces an http:// endpoint to dial host:port and path.
func splitURL(endpoint string) (host, path string, err error) {
	rest, ok := strings.CutPrefix(endpoint, "http://")
	if !ok {
		return "", "", errors.New("unsupported url: " + endpoint)
	}
	host, path, found := strings.Cut(rest, "/")
	if !found {
		path = ""
	}
	if !strings.Contains(host, ":") {
		host += ":80"
	}
	return host, "/" + path, nil
}

func hostOnly(hostport string) string {
	h, _, _ := strings.Cut(hostport, ":")
	return h
}

func cutBody(resp []byte) (head string, body []byte, ok bool) {
	i := strings.Index(string(resp), "\r\n\r\n")
	if i < 0 {
		return "", nil, false
	}
	return string(resp[:i]), resp[i+4:], true
}

func firstLine(head string) string {
	l, _, _ := strings.Cut(head, "\r\n")
	return l
}
