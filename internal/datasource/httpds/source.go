package httpds

import (
	"context"
	"fmt"
	"io"

	"github.com/tbroadley/sandpaper/internal/datasource"
)

var _ datasource.Source = Source{}

// Source is a remote table fetched with GET.
type Source struct {
	Client *Client
	URL    string
}

// Open fetches the URL and returns the response body. Statuses outside 2xx
// are errors.
func (s Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.Client.Get(ctx, s.URL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: GET %s: %s", s.URL, resp.Status)
	}
	return resp.Body, nil
}
