// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bishop

import (
	"sort"
	"time"
)

// Encoder transforms a materialized response body for a non-identity
// content-encoding, for an "encodings-provided" offer.
type Encoder func([]byte) []byte

func identityEncoder(b []byte) []byte { return b }

// ResponseTable maps a media-type string (e.g. "text/html") to a responder.
// A responder is one of three shapes: a literal body value, a
// func(*Request) any whose return value
// is itself either a map[string]any partial (merged into the response) or a
// scalar (assigned as the body), or a bare map[string]any partial.
type ResponseTable map[string]any

// Handlers holds the 33 decision callbacks of the engine. A nil field in
// an override set keeps the default from defaultHandlers; NewResource merges a
// caller-supplied override set atop those defaults.
//
// Most callbacks return a CallbackOut so a resource can merge a partial
// response fragment alongside its decision. The
// callbacks that provide a value rather than a decision — the *Provided
// lists, Options, GenerateETag, LastModified, Expires, CreatePath, and
// BaseURI — are modeled with their own concrete return type instead, since
// nothing downstream ever branches on them as a decision.
type Handlers struct {
	ServiceAvailable        func(*Request) CallbackOut
	KnownMethods            func(*Request) []Method
	URITooLong              func(*Request) CallbackOut
	AllowedMethods          func(*Request) []Method
	ValidateContentChecksum func(*Request) (valid bool, provided bool)
	MalformedRequest        func(*Request) CallbackOut
	IsAuthorized            func(*Request) CallbackOut
	Forbidden               func(*Request) CallbackOut
	ValidContentHeaders     func(*Request) CallbackOut
	KnownContentType        func(*Request) CallbackOut
	ValidEntityLength       func(*Request) CallbackOut
	Options                 func(*Request) map[string]string
	ContentTypesProvided    func(*Request) []string
	LanguagesProvided       func(*Request) []string
	CharsetsProvided        func(*Request) []string
	EncodingsProvided       func(*Request) map[string]Encoder
	Variances               func(*Request) []string
	ResourceExists          func(*Request) CallbackOut
	GenerateETag            func(*Request) string
	LastModified            func(*Request) (time.Time, bool)
	Expires                 func(*Request) (time.Time, bool)
	MovedPermanently        func(*Request) CallbackOut
	MovedTemporarily        func(*Request) CallbackOut
	PreviouslyExisted       func(*Request) CallbackOut
	AllowMissingPost        func(*Request) CallbackOut
	DeleteResource          func(*Request) CallbackOut
	DeleteCompleted         func(*Request) CallbackOut
	PostIsCreate            func(*Request) CallbackOut
	CreatePath              func(*Request) string
	BaseURI                 func(*Request) string
	ProcessPost             func(*Request) CallbackOut
	IsConflict              func(*Request) CallbackOut
	MultipleRepresentations func(*Request) CallbackOut
}

func defaultHandlers() Handlers {
	return Handlers{
		ServiceAvailable: func(*Request) CallbackOut { return Bool(true) },
		KnownMethods: func(*Request) []Method {
			return []Method{GET, HEAD, POST, PUT, DELETE, TRACE, CONNECT, OPTIONS}
		},
		URITooLong:     func(*Request) CallbackOut { return Bool(false) },
		AllowedMethods: func(*Request) []Method { return []Method{GET, HEAD} },
		ValidateContentChecksum: func(*Request) (bool, bool) {
			return false, false
		},
		MalformedRequest:     func(*Request) CallbackOut { return Bool(false) },
		IsAuthorized:         func(*Request) CallbackOut { return Bool(true) },
		Forbidden:            func(*Request) CallbackOut { return Bool(false) },
		ValidContentHeaders:  func(*Request) CallbackOut { return Bool(true) },
		KnownContentType:     func(*Request) CallbackOut { return Bool(true) },
		ValidEntityLength:    func(*Request) CallbackOut { return Bool(true) },
		Options:              func(*Request) map[string]string { return map[string]string{} },
		ContentTypesProvided: func(*Request) []string { return []string{"text/html"} },
		LanguagesProvided:    func(*Request) []string { return nil },
		CharsetsProvided:     func(*Request) []string { return []string{"utf8"} },
		EncodingsProvided: func(*Request) map[string]Encoder {
			return map[string]Encoder{"identity": identityEncoder}
		},
		Variances:      func(*Request) []string { return nil },
		ResourceExists: func(*Request) CallbackOut { return Bool(true) },
		GenerateETag:   func(*Request) string { return "" },
		LastModified:   func(*Request) (time.Time, bool) { return time.Time{}, false },
		Expires:        func(*Request) (time.Time, bool) { return time.Time{}, false },

		MovedPermanently:        func(*Request) CallbackOut { return Bool(false) },
		MovedTemporarily:        func(*Request) CallbackOut { return Bool(false) },
		PreviouslyExisted:       func(*Request) CallbackOut { return Bool(false) },
		AllowMissingPost:        func(*Request) CallbackOut { return Bool(false) },
		DeleteResource:          func(*Request) CallbackOut { return Bool(false) },
		DeleteCompleted:         func(*Request) CallbackOut { return Bool(true) },
		PostIsCreate:            func(*Request) CallbackOut { return Bool(false) },
		CreatePath:              func(*Request) string { return "" },
		BaseURI:                 func(*Request) string { return "" },
		ProcessPost:             func(*Request) CallbackOut { return CallbackOut{kind: outNil} },
		IsConflict:              func(*Request) CallbackOut { return Bool(false) },
		MultipleRepresentations: func(*Request) CallbackOut { return Bool(false) },
	}
}

// applyOverrides copies every non-nil field of override atop h. contentTypesSet
// reports whether the caller supplied ContentTypesProvided explicitly, so
// NewResource knows whether to still derive it from the response table.
func applyOverrides(h *Handlers, o Handlers) (contentTypesSet bool) {
	if o.ServiceAvailable != nil {
		h.ServiceAvailable = o.ServiceAvailable
	}
	if o.KnownMethods != nil {
		h.KnownMethods = o.KnownMethods
	}
	if o.URITooLong != nil {
		h.URITooLong = o.URITooLong
	}
	if o.AllowedMethods != nil {
		h.AllowedMethods = o.AllowedMethods
	}
	if o.ValidateContentChecksum != nil {
		h.ValidateContentChecksum = o.ValidateContentChecksum
	}
	if o.MalformedRequest != nil {
		h.MalformedRequest = o.MalformedRequest
	}
	if o.IsAuthorized != nil {
		h.IsAuthorized = o.IsAuthorized
	}
	if o.Forbidden != nil {
		h.Forbidden = o.Forbidden
	}
	if o.ValidContentHeaders != nil {
		h.ValidContentHeaders = o.ValidContentHeaders
	}
	if o.KnownContentType != nil {
		h.KnownContentType = o.KnownContentType
	}
	if o.ValidEntityLength != nil {
		h.ValidEntityLength = o.ValidEntityLength
	}
	if o.Options != nil {
		h.Options = o.Options
	}
	if o.ContentTypesProvided != nil {
		h.ContentTypesProvided = o.ContentTypesProvided
		contentTypesSet = true
	}
	if o.LanguagesProvided != nil {
		h.LanguagesProvided = o.LanguagesProvided
	}
	if o.CharsetsProvided != nil {
		h.CharsetsProvided = o.CharsetsProvided
	}
	if o.EncodingsProvided != nil {
		h.EncodingsProvided = o.EncodingsProvided
	}
	if o.Variances != nil {
		h.Variances = o.Variances
	}
	if o.ResourceExists != nil {
		h.ResourceExists = o.ResourceExists
	}
	if o.GenerateETag != nil {
		h.GenerateETag = o.GenerateETag
	}
	if o.LastModified != nil {
		h.LastModified = o.LastModified
	}
	if o.Expires != nil {
		h.Expires = o.Expires
	}
	if o.MovedPermanently != nil {
		h.MovedPermanently = o.MovedPermanently
	}
	if o.MovedTemporarily != nil {
		h.MovedTemporarily = o.MovedTemporarily
	}
	if o.PreviouslyExisted != nil {
		h.PreviouslyExisted = o.PreviouslyExisted
	}
	if o.AllowMissingPost != nil {
		h.AllowMissingPost = o.AllowMissingPost
	}
	if o.DeleteResource != nil {
		h.DeleteResource = o.DeleteResource
	}
	if o.DeleteCompleted != nil {
		h.DeleteCompleted = o.DeleteCompleted
	}
	if o.PostIsCreate != nil {
		h.PostIsCreate = o.PostIsCreate
	}
	if o.CreatePath != nil {
		h.CreatePath = o.CreatePath
	}
	if o.BaseURI != nil {
		h.BaseURI = o.BaseURI
	}
	if o.ProcessPost != nil {
		h.ProcessPost = o.ProcessPost
	}
	if o.IsConflict != nil {
		h.IsConflict = o.IsConflict
	}
	if o.MultipleRepresentations != nil {
		h.MultipleRepresentations = o.MultipleRepresentations
	}
	return contentTypesSet
}

type sentinelKind uint8

const (
	sentinelNone sentinelKind = iota
	sentinelHalt
	sentinelErr
)

// Resource is a declarative specification of the representations a URI
// supports plus the decision callbacks governing its HTTP semantics.
type Resource struct {
	Table    ResponseTable
	Handlers Handlers

	sentinel   sentinelKind
	haltStatus int
	haltFrag   map[string]any
	errTerm    any
}

// NewResource constructs a resource, merging an optional override set atop
// the default handler table and deriving ContentTypesProvided from the
// response table's keys when the caller doesn't override it.
func NewResource(table ResponseTable, overrides ...Handlers) *Resource {
	h := defaultHandlers()
	contentTypesSet := false
	if len(overrides) > 0 {
		contentTypesSet = applyOverrides(&h, overrides[0])
	}
	if !contentTypesSet {
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) == 0 {
			keys = []string{"text/html"}
		}
		h.ContentTypesProvided = func(*Request) []string { return keys }
	}
	return &Resource{Table: table, Handlers: h}
}

// HaltResource returns a resource whose only media type is "*/*" and which
// always terminates with status, merging in the optional response
// fragment.
func HaltResource(status int, fragment ...map[string]any) *Resource {
	var frag map[string]any
	if len(fragment) > 0 {
		frag = fragment[0]
	}
	return &Resource{sentinel: sentinelHalt, haltStatus: status, haltFrag: frag}
}

// ErrorResource returns a resource that always terminates with 500, using
// term as the diagnostic body.
func ErrorResource(term any) *Resource {
	return &Resource{sentinel: sentinelErr, errTerm: term}
}
