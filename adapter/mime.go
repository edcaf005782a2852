// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package adapter

// Common media type strings, for registering a Resource's ResponseTable
// entries without repeating the literal across a project.
const (
	MIMEApplicationJSON = "application/json"
	MIMETextHTML        = "text/html"
	MIMEApplicationXML  = "application/xml"
	MIMETextPlain       = "text/plain"
)
