// Package errors provides the structured error type shared by every gears
// package. The code of an AppError decides its HTTP status and whether a
// caller may retry; the admin API renders it as {"error": {...}}.
package errors
