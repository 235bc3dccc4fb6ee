package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_PlainHTTP(t *testing.T) {
	assert.Nil(t, Check(context.Background(), "http://localhost:8080"))
}

func TestCheck_TLSServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	cs := Check(context.Background(), srv.URL)
	require.NotNil(t, cs)
	assert.Equal(t, StatusValid, cs.Status)
	assert.Greater(t, cs.DaysLeft, 365)
	assert.False(t, cs.NotAfter.IsZero())
}

func TestCheck_Unreachable(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cs := Check(context.Background(), url)
	require.NotNil(t, cs)
	assert.Equal(t, StatusUnreachable, cs.Status)
}
