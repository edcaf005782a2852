// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bishop

import "fmt"

// assembleBody looks up the
// responder for the request's negotiated media type and apply its result
// to the accumulator. A function responder's return value merges like any
// other partial (map → response merge; anything else → becomes the body);
// a map responder merges directly; anything else is assigned as a literal
// body.
func assembleBody(ectx *engineCtx) {
	req := ectx.req
	mediaType := req.AcceptableType
	if mediaType == "" {
		return
	}
	responder, ok := ectx.rc.Table[mediaType]
	if !ok {
		return
	}
	switch v := responder.(type) {
	case func(*Request) any:
		applyResponderResult(ectx.res, v(req))
	case map[string]any:
		ectx.res.mergePartial(v)
	default:
		ectx.res.Body = v
	}
}

func applyResponderResult(res *Response, v any) {
	switch val := v.(type) {
	case nil:
	case map[string]any:
		res.mergePartial(val)
	default:
		res.Body = val
	}
}

// finalizeResponse sets Content-Type with the negotiated charset (unless an
// earlier stage already set it) and applies the negotiated content-encoding.
// Header names stay lower-cased internally; Response.CanonicalHeaders
// produces the Title-Case egress view.
func finalizeResponse(ectx *engineCtx) {
	req, res := ectx.req, ectx.res

	if req.AcceptableType != "" && !res.Headers.Has("Content-Type") {
		ct := req.AcceptableType
		if req.AcceptableCharset != "" {
			ct = fmt.Sprintf("%s; charset=%s", ct, req.AcceptableCharset)
		}
		res.SetHeader("Content-Type", ct)
	}

	if req.AcceptableEncoding != "" && req.AcceptableEncoding != "identity" {
		if encoders := ectx.rc.Handlers.EncodingsProvided(req); encoders != nil {
			if enc, ok := encoders[req.AcceptableEncoding]; ok {
				if body, ok := res.Body.([]byte); ok {
					res.Body = enc(body)
				} else if s, ok := res.Body.(string); ok {
					res.Body = enc([]byte(s))
				}
				res.SetHeader("Content-Encoding", req.AcceptableEncoding)
			}
		}
	}
}

