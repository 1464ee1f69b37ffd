package httputils

import (
	"net/url"
	"testing"

	testutils "github.com/jdillenkofer/filedrop/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQueryParam(t *testing.T) {
	testutils.SkipIfIntegration(t)

	values, err := url.ParseQuery("continuationToken=abc&prefix=")
	require.NoError(t, err)

	token := GetQueryParam(values, "continuationToken")
	require.NotNil(t, token)
	assert.Equal(t, "abc", *token)
	assert.Nil(t, GetQueryParam(values, "prefix"))
	assert.Nil(t, GetQueryParam(values, "missing"))
}
