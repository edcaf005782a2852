// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bishop

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coregx/bishop/internal/header"
	"github.com/coregx/bishop/internal/negotiate"
)

// Node names a single labeled step of the decision graph, following the
// Webmachine diagram's own node names. The entry point is
// nodeB13.
type Node uint8

const (
	nodeB13 Node = iota
	nodeB12
	nodeB11
	nodeB10
	nodeB9
	nodeB9a
	nodeB9b
	nodeB8
	nodeB7
	nodeB6
	nodeB5
	nodeB4
	nodeB3
	nodeC3
	nodeC4
	nodeD4
	nodeD5
	nodeE5
	nodeE6
	nodeF6
	nodeF7
	nodeG7
	nodeG8
	nodeG9
	nodeG11
	nodeH7
	nodeH10
	nodeH11
	nodeH12
	nodeI4
	nodeI7
	nodeI12
	nodeI13
	nodeJ18
	nodeK5
	nodeK7
	nodeK13
	nodeL5
	nodeL7
	nodeL13
	nodeL14
	nodeL15
	nodeL17
	nodeM5
	nodeM7
	nodeM16
	nodeM20
	nodeM20b
	nodeN5
	nodeN11
	nodeN16
	nodeO14
	nodeO16
	nodeO18
	nodeO18b
	nodeO20
	nodeP3
	nodeP11
)

// transition is what a node's step returns: either a successor node or a
// terminal status code: an explicit loop driven by a Node
// enumeration with a step(node, ctx) -> Transition{Next(Node)|Done(status)}
// dispatcher").
type transition struct {
	next   Node
	done   bool
	status int
}

func goTo(n Node) transition       { return transition{next: n} }
func finish(status int) transition { return transition{done: true, status: status} }

// ioFailure wraps a request-body I/O error (the one class of failure that
// propagates to the host unhandled, rather than becoming a status
// code). It is recovered in engineCtx.run and surfaced as Run's error return.
type ioFailure struct{ err error }

// engineCtx carries the per-request mutable state the step functions thread
// through the walk: the request/response pair, the resource being
// evaluated, the negotiated-dimension names seen so far (for Vary), the
// diagnostic decision log, and a guard against re-invoking the responder.
type engineCtx struct {
	req   *Request
	res   *Response
	rc    *Resource
	state *DecisionState

	varyDims      []string
	bodyAssembled bool
}

// Run executes the decision engine against req and rc and returns the
// finished response. The only error it returns is an I/O failure reading
// the request body during the B9a checksum check; every other
// abnormal condition — including a callback protocol violation — is folded
// into a response with a 5xx status. A panic raised by a callback for any
// other reason is not recovered and propagates to the caller.
func Run(req *Request, rc *Resource) (*Response, error) {
	res := newResponse()

	switch rc.sentinel {
	case sentinelHalt:
		res.Status = rc.haltStatus
		res.mergePartial(rc.haltFrag)
		return res, nil
	case sentinelErr:
		res.Status = 500
		res.Body = rc.errTerm
		return res, nil
	}

	req.IfMatch = parseETagList(req.Header("If-Match"))
	req.IfNoneMatch = parseETagList(req.Header("If-None-Match"))

	ectx := &engineCtx{req: req, res: res, rc: rc, state: newDecisionState()}

	status, err := ectx.run()
	if err != nil {
		return nil, err
	}
	res.Status = status
	if status >= 500 && res.Body == nil {
		res.Body = ectx.state.String()
	}
	finalizeResponse(ectx)
	return res, nil
}

// run drives the node loop from the entry point until a node terminates.
// Callback protocol violations unwind via panic/recover, the same
// pattern middleware/recovery.go uses to turn a panicking handler into a
// 500 rather than crashing the process.
func (ectx *engineCtx) run() (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *ProtocolError:
				ectx.res.Body = v.Error()
				status = 500
			case ioFailure:
				err = v.err
			default:
				panic(r)
			}
		}
	}()

	node := nodeB13
	for {
		t := step(ectx, node)
		if t.done {
			return t.status, nil
		}
		node = t.next
	}
}

func step(ectx *engineCtx, node Node) transition {
	switch node {
	case nodeB13:
		return ectx.stepB13()
	case nodeB12:
		return ectx.stepB12()
	case nodeB11:
		return ectx.stepB11()
	case nodeB10:
		return ectx.stepB10()
	case nodeB9:
		return ectx.stepB9()
	case nodeB9a:
		return ectx.stepB9a()
	case nodeB9b:
		return ectx.stepB9b()
	case nodeB8:
		return ectx.stepB8()
	case nodeB7:
		return ectx.stepB7()
	case nodeB6:
		return ectx.stepB6()
	case nodeB5:
		return ectx.stepB5()
	case nodeB4:
		return ectx.stepB4()
	case nodeB3:
		return ectx.stepB3()
	case nodeC3:
		return goTo(nodeC4)
	case nodeC4:
		return ectx.stepC4()
	case nodeD4:
		return goTo(nodeD5)
	case nodeD5:
		return ectx.stepD5()
	case nodeE5:
		return goTo(nodeE6)
	case nodeE6:
		return ectx.stepE6()
	case nodeF6:
		return goTo(nodeF7)
	case nodeF7:
		return ectx.stepF7()
	case nodeG7:
		return ectx.stepG7()
	case nodeG8:
		return ectx.stepG8()
	case nodeG9:
		return ectx.stepG9()
	case nodeG11:
		return ectx.stepG11()
	case nodeH7:
		return ectx.stepH7()
	case nodeH10:
		return ectx.stepH10()
	case nodeH11:
		return ectx.stepH11()
	case nodeH12:
		return ectx.stepH12()
	case nodeI4:
		return ectx.stepI4()
	case nodeI7:
		return ectx.stepI7()
	case nodeI12:
		return ectx.stepI12()
	case nodeI13:
		return ectx.stepI13()
	case nodeJ18:
		return ectx.stepJ18()
	case nodeK5:
		return ectx.stepK5()
	case nodeK7:
		return ectx.stepK7()
	case nodeK13:
		return ectx.stepK13()
	case nodeL5:
		return ectx.stepL5()
	case nodeL7:
		return ectx.stepL7()
	case nodeL13:
		return ectx.stepL13()
	case nodeL14:
		return ectx.stepL14()
	case nodeL15:
		return ectx.stepL15()
	case nodeL17:
		return ectx.stepL17()
	case nodeM5:
		return ectx.stepM5()
	case nodeM7:
		return ectx.stepM7()
	case nodeM16:
		return ectx.stepM16()
	case nodeM20:
		return ectx.stepM20()
	case nodeM20b:
		return ectx.stepM20b()
	case nodeN5:
		return ectx.stepN5()
	case nodeN11:
		return ectx.dispatchPost()
	case nodeN16:
		return ectx.stepN16()
	case nodeO14:
		return ectx.stepO14()
	case nodeO16:
		return ectx.stepO16()
	case nodeO18:
		return ectx.stepO18()
	case nodeO18b:
		return ectx.stepO18b()
	case nodeO20:
		return ectx.stepO20()
	case nodeP3:
		return ectx.stepP3()
	case nodeP11:
		return ectx.stepP11()
	default:
		panic(fmt.Sprintf("bishop: unreachable decision node %d", node))
	}
}

// evalDecision interprets a CallbackOut as a plain boolean decision, merging
// any partial response fragment into the accumulator and recording the
// outcome in the decision state. If the callback forced a status code
// instead, forced is true and t holds the termination; the caller returns
// t directly.
func (ectx *engineCtx) evalDecision(name string, out CallbackOut) (result bool, t transition, forced bool) {
	if status, ok := out.ForcedStatus(); ok {
		return false, finish(status), true
	}
	result, partial, ok := out.Decision()
	if !ok {
		panic(protocolViolation(name, "expected a boolean, partial map, or forced status"))
	}
	ectx.res.mergePartial(partial)
	ectx.state.record(name, result)
	return result, transition{}, false
}

// evalRedirect interprets a moved-permanently?/moved-temporarily? result: a
// string value forces status with Location set to it — for
// redirect predicates this is the Location value; true without a location
// is a protocol violation, since there is nothing to redirect to.
func (ectx *engineCtx) evalRedirect(name string, out CallbackOut, status int) (t transition, forced bool) {
	if loc, ok := out.StringValue(); ok {
		ectx.res.SetHeader("Location", loc)
		ectx.state.record(name, true)
		return finish(status), true
	}
	if st, ok := out.ForcedStatus(); ok {
		return finish(st), true
	}
	result, partial, ok := out.Decision()
	if !ok {
		panic(protocolViolation(name, "expected bool, a location string, or a forced status"))
	}
	ectx.res.mergePartial(partial)
	if result {
		panic(protocolViolation(name, "returned true without a Location value"))
	}
	ectx.state.record(name, false)
	return transition{}, false
}

// --- B column: method validation, auth, request well-formedness ---

func (ectx *engineCtx) stepB13() transition {
	h := ectx.rc.Handlers
	result, t, forced := ectx.evalDecision("service-available?", h.ServiceAvailable(ectx.req))
	if forced {
		return t
	}
	if !result {
		return finish(503)
	}
	return goTo(nodeB12)
}

func (ectx *engineCtx) stepB12() transition {
	methods := ectx.rc.Handlers.KnownMethods(ectx.req)
	ectx.state.record("known-methods", methodIn(ectx.req.Method, methods))
	if !methodIn(ectx.req.Method, methods) {
		return finish(501)
	}
	return goTo(nodeB11)
}

func (ectx *engineCtx) stepB11() transition {
	h := ectx.rc.Handlers
	result, t, forced := ectx.evalDecision("uri-too-long?", h.URITooLong(ectx.req))
	if forced {
		return t
	}
	if result {
		return finish(414)
	}
	return goTo(nodeB10)
}

func (ectx *engineCtx) stepB10() transition {
	methods := ectx.rc.Handlers.AllowedMethods(ectx.req)
	allowed := methodIn(ectx.req.Method, methods)
	ectx.state.record("allowed-methods", allowed)
	if !allowed {
		ectx.res.SetHeader("Allow", joinMethods(methods))
		return finish(405)
	}
	return goTo(nodeB9)
}

func (ectx *engineCtx) stepB9() transition {
	if ectx.req.Header("Content-MD5") != "" {
		return goTo(nodeB9a)
	}
	return goTo(nodeB9b)
}

func (ectx *engineCtx) stepB9a() transition {
	h := ectx.rc.Handlers
	req := ectx.req
	valid, provided := h.ValidateContentChecksum(req)
	if !provided {
		sum, err := req.computeBodyMD5()
		if err != nil {
			panic(ioFailure{err: err})
		}
		valid = sum == strings.ToLower(req.Header("Content-MD5"))
	}
	ectx.state.record("validate-content-checksum", valid)
	if !valid {
		ectx.res.Body = "Content-MD5 header does not match request body"
		return finish(400)
	}
	return goTo(nodeB9b)
}

func (ectx *engineCtx) stepB9b() transition {
	h := ectx.rc.Handlers
	result, t, forced := ectx.evalDecision("malformed-request?", h.MalformedRequest(ectx.req))
	if forced {
		return t
	}
	if result {
		return finish(400)
	}
	return goTo(nodeB8)
}

func (ectx *engineCtx) stepB8() transition {
	h := ectx.rc.Handlers
	out := h.IsAuthorized(ectx.req)
	if status, ok := out.ForcedStatus(); ok {
		return finish(status)
	}
	if challenge, ok := out.StringValue(); ok {
		ectx.res.SetHeader("WWW-Authenticate", challenge)
		ectx.state.record("is-authorized?", false)
		return finish(401)
	}
	result, partial, ok := out.Decision()
	if !ok {
		panic(protocolViolation("is-authorized?", "expected bool, a WWW-Authenticate string, partial map, or status"))
	}
	ectx.res.mergePartial(partial)
	ectx.state.record("is-authorized?", result)
	if !result {
		return finish(401)
	}
	return goTo(nodeB7)
}

func (ectx *engineCtx) stepB7() transition {
	h := ectx.rc.Handlers
	result, t, forced := ectx.evalDecision("forbidden?", h.Forbidden(ectx.req))
	if forced {
		return t
	}
	if result {
		return finish(403)
	}
	return goTo(nodeB6)
}

func (ectx *engineCtx) stepB6() transition {
	h := ectx.rc.Handlers
	result, t, forced := ectx.evalDecision("valid-content-headers?", h.ValidContentHeaders(ectx.req))
	if forced {
		return t
	}
	if !result {
		return finish(501)
	}
	return goTo(nodeB5)
}

func (ectx *engineCtx) stepB5() transition {
	h := ectx.rc.Handlers
	result, t, forced := ectx.evalDecision("known-content-type?", h.KnownContentType(ectx.req))
	if forced {
		return t
	}
	if !result {
		return finish(415)
	}
	return goTo(nodeB4)
}

func (ectx *engineCtx) stepB4() transition {
	h := ectx.rc.Handlers
	result, t, forced := ectx.evalDecision("valid-entity-length?", h.ValidEntityLength(ectx.req))
	if forced {
		return t
	}
	if !result {
		return finish(413)
	}
	return goTo(nodeB3)
}

func (ectx *engineCtx) stepB3() transition {
	if ectx.req.Method == OPTIONS {
		opts := ectx.rc.Handlers.Options(ectx.req)
		for k, v := range opts {
			ectx.res.SetHeader(k, v)
		}
		return finish(200)
	}
	return goTo(nodeC3)
}

// --- C/D/E/F columns: content negotiation ---

func (ectx *engineCtx) trackVary(name string, offered []string, headerPresent bool) {
	if len(offered) > 0 || headerPresent {
		ectx.varyDims = append(ectx.varyDims, name)
	}
}

func (ectx *engineCtx) stepC4() transition {
	req := ectx.req
	offered := ectx.rc.Handlers.ContentTypesProvided(req)
	chosen := negotiate.ContentType(req.Header("Accept"), offered)
	if chosen == "" && len(offered) > 0 {
		return finish(406)
	}
	req.AcceptableType = chosen
	ectx.trackVary("accept", offered, req.Header("Accept") != "")
	return goTo(nodeD4)
}

func (ectx *engineCtx) stepD5() transition {
	req := ectx.req
	offered := ectx.rc.Handlers.LanguagesProvided(req)
	accept := req.Header("Accept-Language")
	if len(offered) > 0 {
		chosen := negotiate.Language(accept, offered)
		if chosen == "" {
			return finish(406)
		}
		req.AcceptableLanguage = chosen
	}
	ectx.trackVary("accept-language", offered, accept != "")
	return goTo(nodeE5)
}

func (ectx *engineCtx) stepE6() transition {
	req := ectx.req
	offered := ectx.rc.Handlers.CharsetsProvided(req)
	accept := req.Header("Accept-Charset")
	chosen := negotiate.Charset(accept, offered)
	if chosen == "" && len(offered) > 0 {
		return finish(406)
	}
	req.AcceptableCharset = chosen
	ectx.trackVary("accept-charset", offered, accept != "")
	return goTo(nodeF6)
}

func (ectx *engineCtx) stepF7() transition {
	req := ectx.req
	offered := ectx.rc.Handlers.EncodingsProvided(req)
	names := encoderNames(offered)
	accept := req.Header("Accept-Encoding")
	chosen := negotiate.Encoding(accept, names)
	if chosen == "" && len(names) > 0 {
		return finish(406)
	}
	req.AcceptableEncoding = chosen
	ectx.trackVary("accept-encoding", names, accept != "")
	return goTo(nodeG7)
}

// --- G column: variance, existence, If-Match ---

func (ectx *engineCtx) stepG7() transition {
	req := ectx.req
	variances := ectx.rc.Handlers.Variances(req)
	// Resource-declared variances are listed before the engine's own
	// negotiated-dimension names (resource values first, per G7's
	// concatenation order).
	if vary := header.MergeVary(variances, ectx.varyDims); vary != "" {
		ectx.res.SetHeader("Vary", vary)
	}
	result, t, forced := ectx.evalDecision("resource-exists?", ectx.rc.Handlers.ResourceExists(req))
	if forced {
		return t
	}
	if result {
		return goTo(nodeG8)
	}
	return goTo(nodeH7)
}

func (ectx *engineCtx) stepG8() transition {
	if len(ectx.req.IfMatch) == 0 {
		return goTo(nodeH10)
	}
	return goTo(nodeG9)
}

func (ectx *engineCtx) stepG9() transition {
	if containsStar(ectx.req.IfMatch) {
		return goTo(nodeH10)
	}
	return goTo(nodeG11)
}

func (ectx *engineCtx) stepG11() transition {
	etag := ectx.rc.Handlers.GenerateETag(ectx.req)
	if etagInList(etag, ectx.req.IfMatch) {
		return goTo(nodeH10)
	}
	return finish(412)
}

// --- H column: If-Match (missing resource) and If-Unmodified-Since ---

func (ectx *engineCtx) stepH7() transition {
	if containsStar(ectx.req.IfMatch) {
		return finish(412)
	}
	return goTo(nodeI7)
}

func (ectx *engineCtx) stepH10() transition {
	if ectx.req.Header("If-Unmodified-Since") == "" {
		return goTo(nodeI12)
	}
	return goTo(nodeH11)
}

func (ectx *engineCtx) stepH11() transition {
	t, ok := header.ParseDate(ectx.req.Header("If-Unmodified-Since"))
	if !ok {
		// an unparsable conditional date is treated as absent.
		return goTo(nodeI12)
	}
	ectx.req.IfUnmodifiedSince = t
	ectx.req.hasIfUnmodifiedSince = true
	return goTo(nodeH12)
}

func (ectx *engineCtx) stepH12() transition {
	lm, ok := ectx.rc.Handlers.LastModified(ectx.req)
	if ok && lm.After(ectx.req.IfUnmodifiedSince) {
		return finish(412)
	}
	return goTo(nodeI12)
}

// --- I column: PUT-to-missing shortcut, If-None-Match ---

func (ectx *engineCtx) stepI4() transition {
	t, forced := ectx.evalRedirect("moved-permanently?", ectx.rc.Handlers.MovedPermanently(ectx.req), 301)
	if forced {
		return t
	}
	return goTo(nodeP3)
}

func (ectx *engineCtx) stepI7() transition {
	if ectx.req.Method == PUT {
		return goTo(nodeI4)
	}
	return goTo(nodeK7)
}

func (ectx *engineCtx) stepI12() transition {
	if len(ectx.req.IfNoneMatch) == 0 {
		return goTo(nodeL13)
	}
	return goTo(nodeI13)
}

func (ectx *engineCtx) stepI13() transition {
	if containsStar(ectx.req.IfNoneMatch) {
		return goTo(nodeJ18)
	}
	return goTo(nodeK13)
}

func (ectx *engineCtx) stepJ18() transition {
	if ectx.req.Method == GET || ectx.req.Method == HEAD {
		return finish(304)
	}
	return finish(412)
}

func (ectx *engineCtx) stepK13() transition {
	etag := ectx.rc.Handlers.GenerateETag(ectx.req)
	if etagInList(etag, ectx.req.IfNoneMatch) {
		return goTo(nodeJ18)
	}
	return goTo(nodeL13)
}

// --- K/L column: missing-resource history, If-Modified-Since ---

func (ectx *engineCtx) stepK5() transition {
	t, forced := ectx.evalRedirect("moved-permanently?", ectx.rc.Handlers.MovedPermanently(ectx.req), 301)
	if forced {
		return t
	}
	return goTo(nodeL5)
}

func (ectx *engineCtx) stepK7() transition {
	result, t, forced := ectx.evalDecision("previously-existed?", ectx.rc.Handlers.PreviouslyExisted(ectx.req))
	if forced {
		return t
	}
	if result {
		return goTo(nodeK5)
	}
	return goTo(nodeL7)
}

func (ectx *engineCtx) stepL5() transition {
	t, forced := ectx.evalRedirect("moved-temporarily?", ectx.rc.Handlers.MovedTemporarily(ectx.req), 307)
	if forced {
		return t
	}
	return goTo(nodeM5)
}

func (ectx *engineCtx) stepL7() transition {
	if ectx.req.Method == POST {
		return goTo(nodeM7)
	}
	return finish(404)
}

func (ectx *engineCtx) stepL13() transition {
	if ectx.req.Header("If-Modified-Since") == "" {
		return goTo(nodeM16)
	}
	return goTo(nodeL14)
}

func (ectx *engineCtx) stepL14() transition {
	t, ok := header.ParseDate(ectx.req.Header("If-Modified-Since"))
	if !ok {
		return goTo(nodeM16)
	}
	ectx.req.IfModifiedSince = t
	ectx.req.hasIfModifiedSince = true
	return goTo(nodeL15)
}

func (ectx *engineCtx) stepL15() transition {
	if ectx.req.IfModifiedSince.After(time.Now()) {
		return goTo(nodeM16)
	}
	return goTo(nodeL17)
}

func (ectx *engineCtx) stepL17() transition {
	lm, ok := ectx.rc.Handlers.LastModified(ectx.req)
	if ok && lm.After(ectx.req.IfModifiedSince) {
		return goTo(nodeM16)
	}
	return finish(304)
}

// --- M column: allow-missing-post, DELETE ---

func (ectx *engineCtx) stepM5() transition {
	if ectx.req.Method == POST {
		return goTo(nodeN5)
	}
	return finish(410)
}

func (ectx *engineCtx) stepM7() transition {
	result, t, forced := ectx.evalDecision("allow-missing-post?", ectx.rc.Handlers.AllowMissingPost(ectx.req))
	if forced {
		return t
	}
	if result {
		return goTo(nodeN11)
	}
	return finish(404)
}

func (ectx *engineCtx) stepN5() transition {
	result, t, forced := ectx.evalDecision("allow-missing-post?", ectx.rc.Handlers.AllowMissingPost(ectx.req))
	if forced {
		return t
	}
	if result {
		return goTo(nodeN11)
	}
	return finish(410)
}

func (ectx *engineCtx) stepM16() transition {
	if ectx.req.Method == DELETE {
		return goTo(nodeM20)
	}
	return goTo(nodeN16)
}

func (ectx *engineCtx) stepM20() transition {
	result, t, forced := ectx.evalDecision("delete-resource", ectx.rc.Handlers.DeleteResource(ectx.req))
	if forced {
		return t
	}
	if !result {
		return finish(500)
	}
	return goTo(nodeM20b)
}

func (ectx *engineCtx) stepM20b() transition {
	result, t, forced := ectx.evalDecision("delete-completed?", ectx.rc.Handlers.DeleteCompleted(ectx.req))
	if forced {
		return t
	}
	if result {
		return goTo(nodeO20)
	}
	return finish(202)
}

// --- N/O/P column: POST dispatch, PUT conflict, representation ---

func (ectx *engineCtx) stepN16() transition {
	if ectx.req.Method == POST {
		return goTo(nodeN11)
	}
	return goTo(nodeO16)
}

// dispatchPost implements N11 (POST dispatch). The
// create branch rewrites the request as a PUT to the computed location and
// runs the assembler against it to materialize a body; the non-create
// branch dispatches on the shape process-post returned.
func (ectx *engineCtx) dispatchPost() transition {
	req := ectx.req
	h := ectx.rc.Handlers

	result, t, forced := ectx.evalDecision("post-is-create?", h.PostIsCreate(req))
	if forced {
		return t
	}

	if result {
		return ectx.dispatchPostCreate()
	}

	out := h.ProcessPost(req)
	if out.IsNil() {
		panic(protocolViolation("process-post", "returned nil"))
	}
	if status, ok := out.ForcedStatus(); ok {
		return finish(status)
	}
	decided, partial, ok := out.Decision()
	if !ok {
		panic(protocolViolation("process-post", "expected bool, status, or partial map"))
	}
	if !decided {
		panic(protocolViolation("process-post", "returned false"))
	}
	if partial == nil {
		return finish(204)
	}
	ectx.res.mergePartial(partial)
	if _, hasStatus := partial["status"]; hasStatus {
		return finish(ectx.res.Status)
	}
	return goTo(nodeP11)
}

func (ectx *engineCtx) dispatchPostCreate() transition {
	req := ectx.req
	h := ectx.rc.Handlers

	createPath := h.CreatePath(req)
	if createPath == "" {
		panic(protocolViolation("create-path", "post-is-create? is true but create-path is empty"))
	}
	base := h.BaseURI(req)
	if base == "" {
		base = req.URI
	}
	location := strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(createPath, "/")
	ectx.res.SetHeader("Location", location)

	putReq := *req
	putReq.Method = PUT
	putReq.URI = location
	saved := ectx.req
	ectx.req = &putReq
	ectx.ensureBody()
	ectx.req = saved

	if ectx.res.Status != 0 {
		if ectx.res.Status != 303 {
			delete(ectx.res.Headers, "location")
		}
		return finish(ectx.res.Status)
	}
	return finish(303)
}

func (ectx *engineCtx) stepO14() transition {
	result, t, forced := ectx.evalDecision("is-conflict?", ectx.rc.Handlers.IsConflict(ectx.req))
	if forced {
		return t
	}
	if result {
		return finish(409)
	}
	return goTo(nodeP11)
}

func (ectx *engineCtx) stepO16() transition {
	if ectx.req.Method == PUT {
		return goTo(nodeO14)
	}
	return goTo(nodeO18)
}

func (ectx *engineCtx) stepP3() transition {
	result, t, forced := ectx.evalDecision("is-conflict?", ectx.rc.Handlers.IsConflict(ectx.req))
	if forced {
		return t
	}
	if result {
		return finish(409)
	}
	return goTo(nodeP11)
}

func (ectx *engineCtx) stepP11() transition {
	ectx.ensureBody()
	if ectx.res.Headers.Has("Location") {
		return finish(201)
	}
	return goTo(nodeO20)
}

func (ectx *engineCtx) stepO20() transition {
	ectx.ensureBody()
	if ectx.res.Body == nil {
		return finish(204)
	}
	return goTo(nodeO18)
}

func (ectx *engineCtx) stepO18() transition {
	ectx.ensureBody()
	ectx.applyCaching()
	return goTo(nodeO18b)
}

func (ectx *engineCtx) stepO18b() transition {
	result, t, forced := ectx.evalDecision("multiple-representations", ectx.rc.Handlers.MultipleRepresentations(ectx.req))
	if forced {
		return t
	}
	if result {
		return finish(300)
	}
	return finish(200)
}

// ensureBody runs the response assembler at most once per Run — the engine
// never retries a callback — since P11, O20, and O18 may each reach
// it along different paths.
func (ectx *engineCtx) ensureBody() {
	if ectx.bodyAssembled {
		return
	}
	ectx.bodyAssembled = true
	assembleBody(ectx)
}

// applyCaching attaches ETag/Last-Modified/Expires from the resource's
// caching callbacks, invoked once the response
// body is being rendered for display.
func (ectx *engineCtx) applyCaching() {
	h := ectx.rc.Handlers
	req := ectx.req
	if etag := h.GenerateETag(req); etag != "" {
		ectx.res.SetHeader("ETag", header.Quote(etag))
	}
	if lm, ok := h.LastModified(req); ok {
		ectx.res.SetHeader("Last-Modified", header.FormatDate(lm))
	}
	if exp, ok := h.Expires(req); ok {
		ectx.res.SetHeader("Expires", header.FormatDate(exp))
	}
}

// --- shared helpers ---

func methodIn(m Method, methods []Method) bool {
	for _, x := range methods {
		if x == m {
			return true
		}
	}
	return false
}

func joinMethods(methods []Method) string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func containsStar(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}

func etagInList(etag string, candidates []string) bool {
	if etag == "" {
		return false
	}
	for _, c := range candidates {
		if header.ETagsEqual(etag, c) {
			return true
		}
	}
	return false
}

func encoderNames(encoders map[string]Encoder) []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseETagList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
