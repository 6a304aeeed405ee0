// Package apperrors contains errors that are safe to show to API clients.
package apperrors

import (
	"fmt"
	"net/http"
)

// APIError is an error with an HTTP status and a user-facing message.
type APIError struct {
	HTTPCode int
	Message  string
}

func (e *APIError) Error() string {
	return e.Message
}

func newError(code int, format string, args ...any) *APIError {
	return &APIError{HTTPCode: code, Message: fmt.Sprintf(format, args...)}
}

func NewErrInternalServerError() *APIError {
	return newError(http.StatusInternalServerError, "internal server error")
}

func NewErrBadRequest(message string) *APIError {
	return newError(http.StatusBadRequest, "%s", message)
}

func NewErrRequiredField(field string) *APIError {
	return newError(http.StatusBadRequest, "field %q is required", field)
}

func NewErrMissingAuthorizationToken() *APIError {
	return newError(http.StatusUnauthorized, "missing authorization token")
}

func NewErrInvalidAuthorizationToken() *APIError {
	return newError(http.StatusUnauthorized, "invalid authorization token")
}

func NewErrUserNotFound(username string) *APIError {
	return newError(http.StatusNotFound, "user %q not found", username)
}

func NewErrWrongPassword() *APIError {
	return newError(http.StatusUnauthorized, "wrong password")
}

func NewErrUsernameIsTaken(username string) *APIError {
	return newError(http.StatusConflict, "username %q is already taken", username)
}

// NewErrAccountMismatch is returned when recovery details do not match a
// registered account.
func NewErrAccountMismatch() *APIError {
	return newError(http.StatusNotFound, "no account matches the given details")
}

func NewErrDomainNotFound(domain string) *APIError {
	return newError(http.StatusNotFound, "domain %q not found", domain)
}

func NewErrDomainExists(domain string) *APIError {
	return newError(http.StatusConflict, "domain %q already exists", domain)
}

// NewErrDomainFolderTaken is returned for a domain name whose image folder
// is already used by another domain, such as "a/b" next to "ab".
func NewErrDomainFolderTaken(domain, other string) *APIError {
	return newError(http.StatusConflict, "domain %q would share its image folder with %q", domain, other)
}

func NewErrSameName() *APIError {
	return newError(http.StatusBadRequest, "new name must differ from the current one")
}

func NewErrTopicNotFound(domain, topic string) *APIError {
	return newError(http.StatusNotFound, "topic %q not found in domain %q", topic, domain)
}

func NewErrCardNotFound(domain, topic, term string) *APIError {
	return newError(http.StatusNotFound, "card %q not found in %s/%s", term, domain, topic)
}

func NewErrCardExists(topic, term string) *APIError {
	return newError(http.StatusConflict, "term %q already exists in topic %q", term, topic)
}

func NewErrImageNotFound(index int) *APIError {
	return newError(http.StatusNotFound, "image #%d not found", index)
}

func NewErrInvalidImageType(ext string) *APIError {
	return newError(http.StatusBadRequest, "unsupported image type %q", ext)
}

func NewErrInvalidImageOrder() *APIError {
	return newError(http.StatusBadRequest, "image order must be a permutation of the current images")
}

func NewErrNoCards() *APIError {
	return newError(http.StatusBadRequest, "no cards match the selection")
}

func NewErrSessionNotFound(id string) *APIError {
	return newError(http.StatusNotFound, "session %q not found", id)
}

func NewErrUnknownAction(action string) *APIError {
	return newError(http.StatusBadRequest, "unknown action %q", action)
}

func NewErrAnswerNotChecked() *APIError {
	return newError(http.StatusConflict, "answer must be checked before grading")
}

func NewErrQuizCompleted() *APIError {
	return newError(http.StatusConflict, "quiz is already completed")
}

// NewErrCorruptDocument reports stored data that could not be decoded. The
// stored data is left untouched.
func NewErrCorruptDocument() *APIError {
	return newError(http.StatusInternalServerError, "stored flashcard data is corrupted and was not modified")
}
