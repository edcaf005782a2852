// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bishop

import (
	"reflect"
	"testing"
)

func TestNewResource_DefaultsContentTypesFromTable(t *testing.T) {
	rc := NewResource(ResponseTable{
		"application/json": func(*Request) any { return []byte("{}") },
		"text/html":         func(*Request) any { return "<p>hi</p>" },
	})

	got := rc.Handlers.ContentTypesProvided(nil)
	want := []string{"application/json", "text/html"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentTypesProvided() = %v, want %v (sorted)", got, want)
	}
}

func TestNewResource_EmptyTableDefaultsToTextHTML(t *testing.T) {
	rc := NewResource(ResponseTable{})
	got := rc.Handlers.ContentTypesProvided(nil)
	want := []string{"text/html"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentTypesProvided() = %v, want %v", got, want)
	}
}

func TestNewResource_OverrideContentTypesProvided(t *testing.T) {
	rc := NewResource(ResponseTable{"application/json": []byte("{}")}, Handlers{
		ContentTypesProvided: func(*Request) []string { return []string{"application/vnd.custom+json"} },
	})

	got := rc.Handlers.ContentTypesProvided(nil)
	want := []string{"application/vnd.custom+json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentTypesProvided() = %v, want %v", got, want)
	}
}

func TestNewResource_OverridesDoNotClobberDefaults(t *testing.T) {
	rc := NewResource(ResponseTable{"text/html": "ok"}, Handlers{
		IsAuthorized: func(*Request) CallbackOut { return Bool(false) },
	})

	if out := rc.Handlers.IsAuthorized(nil); out.b {
		t.Error("IsAuthorized override not applied")
	}
	// ServiceAvailable wasn't overridden — should still be the default (true).
	if out := rc.Handlers.ServiceAvailable(nil); !out.b {
		t.Error("ServiceAvailable default was clobbered by a partial override set")
	}
	// AllowedMethods wasn't overridden either.
	methods := rc.Handlers.AllowedMethods(nil)
	if len(methods) != 2 || methods[0] != GET || methods[1] != HEAD {
		t.Errorf("AllowedMethods() = %v, want [GET HEAD] default", methods)
	}
}

func TestDefaultHandlers_ProcessPostIsNil(t *testing.T) {
	h := defaultHandlers()
	out := h.ProcessPost(nil)
	if !out.IsNil() {
		t.Error("default ProcessPost does not return the nil sentinel")
	}
}

func TestDefaultHandlers_KnownMethods(t *testing.T) {
	h := defaultHandlers()
	methods := h.KnownMethods(nil)
	want := []Method{GET, HEAD, POST, PUT, DELETE, TRACE, CONNECT, OPTIONS}
	if !reflect.DeepEqual(methods, want) {
		t.Errorf("KnownMethods() = %v, want %v", methods, want)
	}
}

func TestHaltResource(t *testing.T) {
	rc := HaltResource(429, map[string]any{"body": "slow down"})
	if rc.sentinel != sentinelHalt {
		t.Fatal("HaltResource did not set sentinelHalt")
	}
	if rc.haltStatus != 429 {
		t.Errorf("haltStatus = %d, want 429", rc.haltStatus)
	}
	if rc.haltFrag["body"] != "slow down" {
		t.Errorf("haltFrag[body] = %v, want %q", rc.haltFrag["body"], "slow down")
	}
}

func TestHaltResource_NoFragment(t *testing.T) {
	rc := HaltResource(204)
	if rc.haltFrag != nil {
		t.Errorf("haltFrag = %v, want nil when no fragment given", rc.haltFrag)
	}
}

func TestErrorResource(t *testing.T) {
	rc := ErrorResource("database unreachable")
	if rc.sentinel != sentinelErr {
		t.Fatal("ErrorResource did not set sentinelErr")
	}
	if rc.errTerm != "database unreachable" {
		t.Errorf("errTerm = %v, want %q", rc.errTerm, "database unreachable")
	}
}

func TestRun_HaltResourceShortCircuits(t *testing.T) {
	rc := HaltResource(503, map[string]any{"body": "maintenance"})
	req := &Request{Method: GET, Headers: Header{}}

	res, err := Run(req, rc)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Status != 503 {
		t.Errorf("Status = %d, want 503", res.Status)
	}
	if res.Body != "maintenance" {
		t.Errorf("Body = %v, want %q", res.Body, "maintenance")
	}
}

func TestRun_ErrorResourceIs500(t *testing.T) {
	rc := ErrorResource("boom")
	req := &Request{Method: GET, Headers: Header{}}

	res, err := Run(req, rc)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Status != 500 {
		t.Errorf("Status = %d, want 500", res.Status)
	}
	if res.Body != "boom" {
		t.Errorf("Body = %v, want %q", res.Body, "boom")
	}
}
