package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// bridgeHeader is sent with the bridge page.
func bridgeHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	return h
}

// callbackHeader acknowledges a delivered URL. The bridge page may be served from "localhost" while it posts to
// 127.0.0.1, so the origin is left open.
func callbackHeader() http.Header {
	h := http.Header{}
	h.Set("Access-Control-Allow-Origin", "*")
	return h
}

// writeResponse writes a complete HTTP/1.1 response with a Content-Length and "Connection: close".
func writeResponse(w io.Writer, status int, header http.Header, body []byte) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status)); err != nil {
		return err
	}

	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Connection", "close")

	if err := h.Write(bw); err != nil {
		return err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	if _, err := bw.Write(body); err != nil {
		return err
	}
	return bw.Flush()
}
