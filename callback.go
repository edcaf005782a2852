// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bishop

import "fmt"

// outKind tags the shape a CallbackOut actually holds.
type outKind uint8

const (
	outBool outKind = iota
	outStatus
	outValue
	outPartial
	outDecision
	outNil
)

// CallbackOut is the tagged variant every resource callback returns,
// modeling five shapes: a plain boolean, a forced
// status code, a string (WWW-Authenticate / Location / create-path
// fragment), a partial response map, or a (decision, partial) pair.
type CallbackOut struct {
	kind    outKind
	b       bool
	status  int
	value   string
	partial map[string]any
}

// Bool wraps a plain boolean decision.
func Bool(b bool) CallbackOut { return CallbackOut{kind: outBool, b: b} }

// StatusOut forces termination with the given status code.
func StatusOut(code int) CallbackOut { return CallbackOut{kind: outStatus, status: code} }

// ValueOut wraps a string result (WWW-Authenticate value, Location, or a
// create-path fragment, depending on which callback returned it).
func ValueOut(s string) CallbackOut { return CallbackOut{kind: outValue, value: s} }

// PartialOut wraps a partial response map, treated as boolean true plus a
// merge into the accumulator.
func PartialOut(p map[string]any) CallbackOut { return CallbackOut{kind: outPartial, partial: p} }

// DecisionOut wraps a (result, partial) pair: result drives the decision,
// partial merges into the accumulator regardless of result.
func DecisionOut(b bool, partial map[string]any) CallbackOut {
	return CallbackOut{kind: outDecision, b: b, partial: partial}
}

// Decision extracts the boolean decision this result implies, and the
// partial response fragment (if any) to merge. ok is false if this
// CallbackOut carries a string or forced status instead of a decision —
// callers that cannot accept those shapes treat ok==false as a protocol
// violation.
func (c CallbackOut) Decision() (result bool, partial map[string]any, ok bool) {
	switch c.kind {
	case outBool:
		return c.b, nil, true
	case outPartial:
		return true, c.partial, true
	case outDecision:
		return c.b, c.partial, true
	default:
		return false, nil, false
	}
}

// ForcedStatus returns the forced status code and true if this result is a
// raw status-code override.
func (c CallbackOut) ForcedStatus() (int, bool) {
	if c.kind == outStatus {
		return c.status, true
	}
	return 0, false
}

// StringValue returns the string payload and true if this result is a
// string (WWW-Authenticate / Location / create-path).
func (c CallbackOut) StringValue() (string, bool) {
	if c.kind == outValue {
		return c.value, true
	}
	return "", false
}

// Partial returns any partial response fragment carried by this result,
// regardless of shape (nil if none).
func (c CallbackOut) Partial() map[string]any {
	switch c.kind {
	case outPartial, outDecision:
		return c.partial
	default:
		return nil
	}
}

// IsNil reports whether this result is the explicit "nil" sentinel used by
// ProcessPost's default handler (nil is a protocol violation,
// distinct from an explicit false).
func (c CallbackOut) IsNil() bool { return c.kind == outNil }

// Callback is the signature every resource decision callback implements.
type Callback func(*Request) CallbackOut

// ProtocolError reports a callback that returned a shape inconsistent with
// its contract. The engine converts this into a synthetic 500 response.
type ProtocolError struct {
	Callback string
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bishop: callback %q protocol violation: %s", e.Callback, e.Message)
}

func protocolViolation(callback, message string) *ProtocolError {
	return &ProtocolError{Callback: callback, Message: message}
}
