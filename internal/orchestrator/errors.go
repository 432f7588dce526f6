package orchestrator

import (
	"errors"

	"github.com/docsync/docsync/internal/config"
	"github.com/docsync/docsync/internal/translate"
)

var (
	// ErrClassificationAmbiguous is never returned: an edit the classifier
	// cannot recognize is treated as TextAndStructure instead.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrDeterministicSyncDefect means a structure or code-block copy
	// produced a page the validator rejects. It is not retried.
	ErrDeterministicSyncDefect = errors.New("deterministic sync defect")

	// ErrTranslationService means the translation service call failed on
	// every attempt. It is the same value as translate.ErrService.
	ErrTranslationService = translate.ErrService

	// ErrValidationFailed means the translated page drifted structurally on
	// both the normal and the strict attempt.
	ErrValidationFailed = errors.New("validation failed")

	// ErrConfigurationMissing means a page needs translation but no
	// translator is configured. It is the same value as
	// config.ErrConfigurationMissing.
	ErrConfigurationMissing = config.ErrConfigurationMissing
)
