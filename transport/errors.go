package transport

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session/core"
)

func pipelineError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(pipelineTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func pipelineWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return pipelineError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(pipelineTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func outcomeError(outcome core.ResponseOutcome, message string) error {
	var category goerrors.Category
	var textCode string
	switch outcome.Kind {
	case core.OutcomeMasqueradedFailure:
		category, textCode = goerrors.CategoryAuth, core.SessionErrorMasqueradedFailure
	case core.OutcomeUnauthorized:
		category, textCode = goerrors.CategoryAuth, core.SessionErrorCredentialExpired
	case core.OutcomeTransientServerError:
		category, textCode = goerrors.CategoryExternal, core.SessionErrorTransientUpstream
	case core.OutcomeNetworkFailure:
		category, textCode = goerrors.CategoryExternal, core.SessionErrorNetworkFailure
	default:
		category, textCode = goerrors.CategoryOperation, core.SessionErrorClientError
	}

	err := goerrors.New(message, category).
		WithCode(outcome.StatusCode).
		WithTextCode(textCode)
	err.WithMetadata(map[string]any{
		"outcome":     string(outcome.Kind),
		"status_code": outcome.StatusCode,
		"retried":     outcome.Retried,
	})
	return err
}

func pipelineTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.SessionErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.SessionErrorCredentialExpired
	case goerrors.CategoryExternal:
		return core.SessionErrorNetworkFailure
	case goerrors.CategoryOperation:
		return core.SessionErrorClientError
	default:
		return core.SessionErrorInternal
	}
}
