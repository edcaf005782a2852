// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bishop

import "github.com/coregx/bishop/internal/header"

// Response is the accumulator the decision engine builds incrementally and
// the assembler finalizes. A zero-value Response has no status; the engine
// never hands one back to the caller.
type Response struct {
	Status  int
	Headers Header
	Body    any
}

// newResponse returns an empty accumulator ready for the engine to fill in.
func newResponse() *Response {
	return &Response{Headers: Header{}}
}

// SetHeader stores a response header, case-insensitively keyed, overwriting
// any prior value under the same name.
func (r *Response) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = Header{}
	}
	r.Headers.Set(name, value)
}

// CanonicalHeaders returns the response headers re-keyed to their egress
// Title-Case spelling. Headers is kept lower-cased
// internally so Get/Has/Set stay case-insensitive throughout the engine
// walk; this method is what an adapter calls once, at the very end, to
// produce the wire representation.
func (r *Response) CanonicalHeaders() map[string]string {
	out := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		out[header.Canonicalize(k)] = v
	}
	return out
}

// mergePartial merges a partial response fragment into r per the merge rule
// key-by-key: two maps under the same key recursively
// merge, nil on the right keeps the left, any other collision has the right
// side win.
func (r *Response) mergePartial(partial map[string]any) {
	if partial == nil {
		return
	}
	if status, ok := partial["status"]; ok {
		if s, ok := status.(int); ok {
			r.Status = s
		}
	}
	if headers, ok := partial["headers"]; ok {
		if h, ok := headers.(map[string]string); ok {
			if r.Headers == nil {
				r.Headers = Header{}
			}
			for k, v := range h {
				r.Headers.Set(k, v)
			}
		}
	}
	if body, ok := partial["body"]; ok && body != nil {
		if existing, isMap := r.Body.(map[string]any); isMap {
			if incoming, isMap := body.(map[string]any); isMap {
				r.Body = mergeMaps(existing, incoming)
				return
			}
		}
		r.Body = body
	}
}
