package model

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestCredentials_Validate(t *testing.T) {
	full := Credentials{BrowserAPIKey: "bb", BrowserProjectID: "proj", ModelAPIKey: "sk"}
	assert.NoError(t, full.Validate())

	missingModel := full
	missingModel.ModelAPIKey = ""
	err := missingModel.Validate()
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "model API key")
	assert.NotContains(t, err.Error(), "project id")

	err = Credentials{}.Validate()
	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Missing, 3)
}

func TestErrorKinds_SurviveWrapping(t *testing.T) {
	nav := eris.Wrap(&NavigationError{URL: "https://x", Err: errors.New("timeout")}, "detail")
	assert.True(t, IsNavigation(nav))
	assert.False(t, IsExtraction(nav))
	assert.False(t, IsConfiguration(nav))

	ext := eris.Wrap(&ExtractionError{Schema: "detail", Err: errors.New("bad json")}, "detail")
	assert.True(t, IsExtraction(ext))
	assert.Contains(t, ext.Error(), "bad json")

	closeErr := &SessionCloseError{SessionID: "s1", Err: errors.New("gone")}
	assert.Equal(t, "close session s1: gone", closeErr.Error())
	assert.ErrorIs(t, closeErr, closeErr.Err)
}

func TestFailureKind(t *testing.T) {
	nav := &NavigationError{URL: "https://www.bbb.org/x-1", Err: errors.New("timeout")}
	ext := &ExtractionError{Schema: "business", Err: errors.New("validation failed")}

	assert.Equal(t, FailureNavigation, FailureKind(nav))
	assert.Equal(t, FailureNavigation, FailureKind(eris.Wrap(nav, "fetch detail")))
	assert.Equal(t, FailureExtraction, FailureKind(ext))
	assert.Equal(t, FailureOther, FailureKind(errors.New("browserbase: HTTP 503")))

	f := NewFailure(StageDetail, nav)
	assert.Equal(t, StageDetail, f.Stage)
	assert.Equal(t, FailureNavigation, f.Kind)
	assert.Equal(t, nav.Error(), f.Reason)
}
