package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_MapsEachKind(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindNotFound:        http.StatusNotFound,
		KindEngineRejection: http.StatusConflict,
		KindRiskRejection:   http.StatusUnprocessableEntity,
		KindRateLimited:     http.StatusTooManyRequests,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus())
	}
}

func TestAs_WrapsUnrecognizedErrorAsInternal(t *testing.T) {
	err := As(errors.New("boom"))
	assert.Equal(t, KindInternal, err.Kind)
}

func TestAs_PassesThroughExistingError(t *testing.T) {
	orig := NotFound("missing")
	got := As(orig)
	assert.Same(t, orig, got)
}

func TestError_IncludesCause(t *testing.T) {
	err := Internal("wrapped", errors.New("root cause"))
	assert.Contains(t, err.Error(), "root cause")
}
