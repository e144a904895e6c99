// Package bearer attaches the current session token to outgoing requests.
//
// The Transport asks its TokenSource on every request. When the source has
// no usable token the request goes out without credentials and the backend
// decides.
package bearer

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/moneyxfer/internal/common"
	"github.com/dmitrijs2005/moneyxfer/internal/logging"
)

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Header renders the Authorization header value for tok.
func Header(tok string) string {
	return common.BearerScheme + " " + tok
}

// Transport is an http.RoundTripper adding "Authorization: Bearer <token>".
type Transport struct {
	Source TokenSource
	Base   http.RoundTripper
	Log    logging.Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Source.Token(req.Context())
	if err != nil {
		if t.Log != nil {
			t.Log.Debug(req.Context(), "request without credentials", "url", req.URL.Path, "reason", err)
		}
		return t.base().RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set(common.AuthorizationHeaderName, Header(tok))
	return t.base().RoundTrip(r)
}
