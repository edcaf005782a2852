// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package validator provides integration with go-playground/validator/v10
// for bishop resources.
//
// This plugin allows automatic validation of request bodies using struct
// tags, converting go-playground's errors into a ValidationErrors a
// resource's MalformedRequest callback can fold into its response.
//
// Example:
//
//	import (
//	    "github.com/coregx/bishop"
//	    "github.com/coregx/bishop/plugins/validator"
//	)
//
//	v := validator.New()
//
//	rc := bishop.NewResource(table, bishop.Handlers{
//	    MalformedRequest: func(req *bishop.Request) bishop.CallbackOut {
//	        var body CreateUserRequest
//	        if err := json.Unmarshal(mustBytes(req), &body); err != nil {
//	            return bishop.Bool(true)
//	        }
//	        if err := v.Validate(&body); err != nil {
//	            // Answered with 400 and the field list as the body.
//	            return bishop.PartialOut(map[string]any{
//	                "body": err.(validator.ValidationErrors).Fields(),
//	            })
//	        }
//	        return bishop.Bool(false)
//	    },
//	})
package validator

// Options configures the validator behavior.
type Options struct {
	// TagName is the struct tag name for validation rules.
	// Default: "validate"
	//
	// Example:
	//   type User struct {
	//       Email string `validate:"required,email"`
	//   }
	TagName string

	// CustomMessages provides custom error messages for specific tags.
	// The key is the tag name (e.g., "required", "email").
	// The value supports placeholders: {field}, {value}, {param}
	//
	// Example:
	//   CustomMessages: map[string]string{
	//       "required": "{field} is required",
	//       "email": "{field} must be a valid email address",
	//       "min": "{field} must be at least {param} characters",
	//   }
	CustomMessages map[string]string
}

// DefaultOptions returns the default validator options.
func DefaultOptions() *Options {
	return &Options{
		TagName:        "validate",
		CustomMessages: nil,
	}
}
