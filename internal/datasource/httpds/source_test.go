package httpds

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Open(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "a,b\n1,2\n")
	}))
	defer srv.Close()

	client := NewClient(Config{})

	rc, err := Source{Client: client, URL: srv.URL + "/data.csv"}.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(b))

	_, err = Source{Client: client, URL: srv.URL + "/missing.csv"}.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
