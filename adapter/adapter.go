// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package adapter bridges net/http to bishop's decision engine: it builds a
// bishop.Request from an *http.Request, runs a bishop.Resource through
// bishop.Run, and writes the resulting bishop.Response back through an
// http.ResponseWriter.
package adapter

import (
	"fmt"
	"net/http"

	"github.com/coregx/bishop"
)

// FromHTTPRequest builds the bishop.Request the engine evaluates from an
// incoming *http.Request. The request body is handed over unread - the
// engine (or a responder) drains it at most once, per bishop.Request.Bytes.
func FromHTTPRequest(r *http.Request) *bishop.Request {
	headers := make(bishop.Header, len(r.Header))
	for k, vs := range r.Header {
		if len(vs) > 0 {
			headers.Set(k, vs[0])
		}
	}
	return &bishop.Request{
		Method:  bishop.Method(r.Method),
		URI:     r.URL.Path,
		Headers: headers,
		Ctx:     r.Context(),
		Body:    r.Body,
	}
}

// WriteResponse writes a bishop.Response to w: headers first (Title-Cased
// via Response.CanonicalHeaders), then the status line, then the body.
// HEAD requests never write a body, matching net/http's own convention for
// http.ResponseWriter.
func WriteResponse(w http.ResponseWriter, method bishop.Method, res *bishop.Response) error {
	header := w.Header()
	for k, v := range res.CanonicalHeaders() {
		header.Set(k, v)
	}
	w.WriteHeader(res.Status)
	if method == bishop.HEAD || res.Body == nil {
		return nil
	}
	body, err := bodyBytes(res.Body)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// bodyBytes renders a response body value to bytes for the wire. Resources
// typically set Body to a []byte or string; anything else is formatted with
// its default fmt verb, which covers the decision state string the engine
// installs as the body of an unhandled 5xx.
func bodyBytes(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	default:
		return []byte(fmt.Sprint(v)), nil
	}
}
