// Package apierror defines the single error taxonomy for the SDK.
//
// Every failure a caller can observe (backend-reported domain errors,
// transport faults, token validation failures, session-state violations)
// is surfaced as an *Error so callers have one type to handle regardless
// of failure origin. Transport-level faults carry HTTPStatus 0.
package apierror
