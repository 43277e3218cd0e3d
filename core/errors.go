package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SessionErrorBadInput            = "SESSION_BAD_INPUT"
	SessionErrorMalformedCredential = "SESSION_MALFORMED_CREDENTIAL"
	SessionErrorCredentialExpired   = "SESSION_CREDENTIAL_EXPIRED"
	SessionErrorSourceNotFound      = "SESSION_SOURCE_NOT_FOUND"
	SessionErrorProfileNotFound     = "SESSION_PROFILE_NOT_FOUND"
	SessionErrorNetworkFailure      = "SESSION_NETWORK_FAILURE"
	SessionErrorTransientUpstream   = "SESSION_TRANSIENT_UPSTREAM"
	SessionErrorClientError         = "SESSION_CLIENT_ERROR"
	SessionErrorMasqueradedFailure  = "SESSION_MASQUERADED_FAILURE"
	SessionErrorInitTimeout         = "SESSION_INIT_TIMEOUT"
	SessionErrorInternal            = "SESSION_INTERNAL_ERROR"
)

var (
	ErrMalformedCredential = errors.New("core: credential is malformed")
	ErrCredentialExpired   = errors.New("core: credential is expired")
	ErrSourceNotFound      = errors.New("core: credential sources exhausted")
	ErrInitTimeout         = errors.New("core: session initialization timed out")
)

func sessionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSessionErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrMalformedCredential):
		return newSessionError(err.Error(), goerrors.CategoryBadInput, SessionErrorMalformedCredential)
	case errors.Is(err, ErrCredentialExpired):
		return newSessionError(err.Error(), goerrors.CategoryAuth, SessionErrorCredentialExpired)
	case errors.Is(err, ErrSourceNotFound):
		return newSessionError(err.Error(), goerrors.CategoryNotFound, SessionErrorSourceNotFound)
	case errors.Is(err, ErrInitTimeout):
		return newSessionError(err.Error(), goerrors.CategoryOperation, SessionErrorInitTimeout).
			WithCode(http.StatusRequestTimeout)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "masquerad"), strings.Contains(msg, "login page"):
		return newSessionError(err.Error(), goerrors.CategoryAuth, SessionErrorMasqueradedFailure)
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return newSessionError(err.Error(), goerrors.CategoryOperation, SessionErrorInitTimeout).
			WithCode(http.StatusRequestTimeout)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network"):
		return newSessionError(err.Error(), goerrors.CategoryExternal, SessionErrorNetworkFailure)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newSessionError(err.Error(), goerrors.CategoryBadInput, SessionErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSessionErrorEnvelope(mapped)
}

func newSessionError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSessionErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureSessionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = sessionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSessionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSessionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SessionErrorBadInput
	case goerrors.CategoryNotFound:
		return SessionErrorSourceNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return SessionErrorCredentialExpired
	case goerrors.CategoryExternal:
		return SessionErrorNetworkFailure
	case goerrors.CategoryOperation:
		return SessionErrorClientError
	default:
		return SessionErrorInternal
	}
}

func sessionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
