// Package core provides the business logic for survey sessions.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. When participants encounter errors, they can quote the error
// code to the study coordinator for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: the session expired or never existed
//	         Action: Reload the page to start a new session
//	         Patterns: "session not found"
//
//	SES002 - Session complete: this session was already submitted
//	         Action: Reload the page if you need to run another session
//	         Patterns: "session already complete"
//
//	SES003 - Unanswered trials: the session cannot be submitted yet
//	         Action: Answer every item before finishing
//	         Patterns: "unanswered trials"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Rating out of range: the memory rating is outside the scale
//	         Action: Pick a rating on the shown scale
//	         Patterns: "rating", "out of range" (combined in sentinel text)
//
//	VAL002 - Trial out of order: items must be answered in sequence
//	         Action: Use the survey page controls; do not replay requests
//	         Patterns: "out of order"
//
//	VAL003 - Trial out of range: no item exists at that position
//	         Action: Reload the page to resynchronize
//	         Patterns: "out of range"
//
// # Submission Errors (SUB001-SUB099)
//
//	SUB001 - Delivery failed: the spreadsheet endpoint rejected the upload
//	         Action: Download the CSV export and send it to the coordinator
//	         Patterns: "deliver session"
//
//	SUB002 - Nothing to export: no fallback export is pending
//	         Action: The session was already delivered remotely
//	         Patterns: "no export pending"
package core

import (
	"fmt"
	"strings"
)

// UserMessage is a user-friendly error with an action suggestion.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Patterns are matched using strings.Contains, so partial matches
// work. The first matching pattern wins, so order matters: more specific
// patterns come before general ones.
var errorPatterns = []errorPattern{
	// Session lifecycle
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your session has expired or could not be found",
			Action:  "Reload the page to start a new session",
			Code:    "SES001",
		},
	},
	{
		pattern: "session already complete",
		msg: UserMessage{
			Message: "This session has already been submitted",
			Action:  "Reload the page if you need to run another session",
			Code:    "SES002",
		},
	},
	{
		pattern: "unanswered trials",
		msg: UserMessage{
			Message: "Some items have not been answered yet",
			Action:  "Answer every item before finishing the survey",
			Code:    "SES003",
		},
	},

	// Validation
	{
		pattern: "rating",
		msg: UserMessage{
			Message: "The memory rating is outside the allowed scale",
			Action:  "Pick a rating on the scale shown for the item",
			Code:    "VAL001",
		},
	},
	{
		pattern: "out of order",
		msg: UserMessage{
			Message: "Items must be answered in order",
			Action:  "Use the survey page controls rather than replaying requests",
			Code:    "VAL002",
		},
	},
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "No survey item exists at that position",
			Action:  "Reload the page to resynchronize with the survey",
			Code:    "VAL003",
		},
	},

	// Submission
	{
		pattern: "deliver session",
		msg: UserMessage{
			Message: "Your responses could not be sent to the results sheet",
			Action:  "Download the CSV export and send it to the study coordinator",
			Code:    "SUB001",
		},
	},
	{
		pattern: "no export pending",
		msg: UserMessage{
			Message: "There is nothing to export for this session",
			Action:  "Your responses were already delivered remotely",
			Code:    "SUB002",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again; quote the error code if it persists",
	Code:    "GEN001",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
