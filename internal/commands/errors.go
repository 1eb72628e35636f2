package commands

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/schedd/internal/model"
)

type ErrorCode string

const (
	ErrCodeEmptyInput         ErrorCode = "empty_input"
	ErrCodeUnknownAction      ErrorCode = "unknown_action"
	ErrCodeInvalidArgument    ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing     ErrorCode = "handler_missing"
	ErrCodeUnresolved         ErrorCode = "unresolved_intent"
	ErrCodeAmbiguousSelector  ErrorCode = "ambiguous_selector"
	ErrCodeInvalidRecurrence  ErrorCode = "invalid_recurrence"
	ErrCodeSchedulingConflict ErrorCode = "scheduling_conflict"
	ErrCodeNotFound           ErrorCode = "not_found"
	ErrCodeInternal           ErrorCode = "internal"
)

type CommandError struct {
	Code      ErrorCode
	Message   string
	Hint      string
	Proposals []model.Span
	Conflicts []model.ConflictPair
	Matches   int
	Cause     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CommandError) Unwrap() error { return e.Cause }

func Errorf(code ErrorCode, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Unresolved(text string) *CommandError {
	return &CommandError{
		Code:    ErrCodeUnresolved,
		Message: fmt.Sprintf("no rule matched %q", text),
		Hint:    "rephrase with a date and time, or hand the text to a fallback resolver",
	}
}

func Ambiguous(matches int, sel Selector) *CommandError {
	msg := "no appointment matches the selector"
	if matches > 1 {
		msg = fmt.Sprintf("%d appointments match the selector", matches)
	}
	return &CommandError{
		Code:    ErrCodeAmbiguousSelector,
		Message: msg,
		Hint:    "add an id, a date or a start time",
		Matches: matches,
	}
}

func Conflict(conflicts []model.ConflictPair, proposals []model.Span) *CommandError {
	return &CommandError{
		Code:      ErrCodeSchedulingConflict,
		Message:   fmt.Sprintf("requested time overlaps %d appointment(s)", len(conflicts)),
		Proposals: proposals,
		Conflicts: conflicts,
	}
}

func InvalidRecurrence(err error) *CommandError {
	return &CommandError{Code: ErrCodeInvalidRecurrence, Message: err.Error(), Cause: err}
}

// CodeOf returns the code carried by err, ErrCodeInternal for foreign errors
// and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	if errors.Is(err, model.ErrInvalidRecurrence) {
		return ErrCodeInvalidRecurrence
	}
	return ErrCodeInternal
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
