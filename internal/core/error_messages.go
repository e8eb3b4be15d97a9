package core

// # Error Codes Reference
//
// User-facing messages with codes for support reference. When an admin
// reports an error, the code identifies which pattern produced it.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this ID already exists
//	        Patterns: "duplicate key", "e11000"
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused", "no reachable servers"
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing reason: A rejection reason is required
//	         Patterns: "reason is required"
//	VAL002 - Invalid date: Invalid date format
//	         Patterns: "invalid date"
//	VAL003 - Invalid template: Template has duplicate or missing element ids
//	         Patterns: "duplicate element id", "has no id"
//	VAL004 - Empty selection: No items were selected
//	         Patterns: "no ids provided"
//	VAL005 - Invalid request: The request could not be processed
//	         Patterns: "validation failed"
//
// # Not Found Errors (NF001-NF099)
//
//	NF001 - User not found        Patterns: "user not found"
//	NF002 - Template not found    Patterns: "template not found"
//	NF003 - Submission not found  Patterns: "submission not found"
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - System busy: Too many exports in progress
//	         Patterns: "too many exports"
//	EXP002 - Unsupported format: Export format is not supported
//	         Patterns: "unsupported export format"
//
// # Auth Errors (AUTH001-AUTH099)
//
//	AUTH001 - Missing token   Patterns: "missing bearer token"
//	AUTH002 - Invalid token   Patterns: "invalid token"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled  Patterns: "context canceled"
//	REQ002 - Request timeout    Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests  Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check application logs for the
// original technical error.
//
// Patterns are matched case-insensitively with strings.Contains. The first
// matching pattern wins, so specific patterns precede general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgDuplicate      = UserMessage{"A record with this ID already exists", "Refresh the page and try again", "DB001"}
	msgUnreachable    = UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}
	msgConnReset      = UserMessage{"Database connection was interrupted", "Please try again", "DB005"}
	msgStoreTimeout   = UserMessage{"Operation timed out", "Narrow the filters or try again later", "DB006"}
	msgDeadlock       = UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}
	msgNeedReason     = UserMessage{"A rejection reason is required", "Enter a reason before rejecting", "VAL001"}
	msgBadDate        = UserMessage{"Invalid date format", "Use YYYY-MM-DD", "VAL002"}
	msgDupElement     = UserMessage{"Template has duplicate element ids", "Ask the template author to fix and resubmit it", "VAL003"}
	msgNoElementID    = UserMessage{"Template has an element without an id", "Ask the template author to fix and resubmit it", "VAL003"}
	msgNoSelection    = UserMessage{"No items were selected", "Select at least one item", "VAL004"}
	msgBadRequest     = UserMessage{"The request could not be processed", "Check the submitted values and try again", "VAL005"}
	msgUserGone       = UserMessage{"User not found", "The user may have been deleted. Refresh the list", "NF001"}
	msgTemplateGone   = UserMessage{"Template not found", "Refresh the list", "NF002"}
	msgSubmissionGone = UserMessage{"Submission not found", "Verify the submission id", "NF003"}
	msgExportsBusy    = UserMessage{"System is busy processing other exports", "Please wait a moment and try again", "EXP001"}
	msgBadFormat      = UserMessage{"Export format is not supported", "Choose csv or xlsx", "EXP002"}
	msgNoToken        = UserMessage{"Sign-in required", "Sign in as an administrator", "AUTH001"}
	msgBadToken       = UserMessage{"Your session is not valid", "Sign in again", "AUTH002"}
	msgCancelled      = UserMessage{"Request was cancelled", "Please try again", "REQ001"}
	msgDeadline       = UserMessage{"Request timed out", "Narrow the filters or check your connection", "REQ002"}
	msgRateLimited    = UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}

	// defaultMessage is returned when nothing matches (ERR000).
	defaultMessage = UserMessage{"An unexpected error occurred", "Please try again or contact support", "ERR000"}
)

// notFoundMessages maps NotFoundError.Resource to its message.
var notFoundMessages = map[string]UserMessage{
	"user":       msgUserGone,
	"template":   msgTemplateGone,
	"submission": msgSubmissionGone,
}

// errorRule maps lower-case substrings of an error string to a message.
type errorRule struct {
	patterns []string
	msg      UserMessage
}

// errorRules are tried in order; store errors come first so a driver
// timeout is not reported as a plain request timeout.
var errorRules = []errorRule{
	{[]string{"duplicate key", "e11000"}, msgDuplicate},
	{[]string{"connection refused", "no reachable servers"}, msgUnreachable},
	{[]string{"connection reset"}, msgConnReset},
	{[]string{"timeout"}, msgStoreTimeout},
	{[]string{"deadlock"}, msgDeadlock},

	{[]string{"reason is required"}, msgNeedReason},
	{[]string{"invalid date"}, msgBadDate},
	{[]string{"duplicate element id"}, msgDupElement},
	{[]string{"has no id"}, msgNoElementID},
	{[]string{"no ids provided"}, msgNoSelection},
	{[]string{"validation failed"}, msgBadRequest},

	{[]string{"user not found"}, msgUserGone},
	{[]string{"template not found"}, msgTemplateGone},
	{[]string{"submission not found"}, msgSubmissionGone},

	{[]string{"too many exports"}, msgExportsBusy},
	{[]string{"unsupported export format"}, msgBadFormat},

	{[]string{"missing bearer token"}, msgNoToken},
	{[]string{"invalid token"}, msgBadToken},

	{[]string{"context canceled"}, msgCancelled},
	{[]string{"context deadline exceeded"}, msgDeadline},

	{[]string{"rate limit"}, msgRateLimited},
}

// MapError converts a technical error to a user-friendly message. Typed
// errors are recognised first; anything else is matched by its text.
//
//	msg := MapError(NewNotFound("user", "u1"))
//	// msg.Code == "NF001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		if msg, ok := notFoundMessages[nf.Resource]; ok {
			return msg
		}
	}
	switch {
	case errors.Is(err, ErrTooManyExports):
		return msgExportsBusy
	case errors.Is(err, context.Canceled):
		return msgCancelled
	}

	errStr := strings.ToLower(err.Error())
	for _, rule := range errorRules {
		for _, p := range rule.patterns {
			if strings.Contains(errStr, p) {
				return rule.msg
			}
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string { return e.User.Message }

func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
