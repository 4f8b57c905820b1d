// Package bodyparse decodes JSON and URL-encoded request bodies ahead
// of the route groups. Decoded values travel in the request context;
// oversized or malformed bodies become payload errors for the
// normalizer and never reach a handler.
package bodyparse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/owenvale/shopfront/internal/httperr"
)

type jsonKey struct{}
type formKey struct{}

// JSON returns the decoded JSON body, if the request carried one.
func JSON(ctx context.Context) (any, bool) {
	v := ctx.Value(jsonKey{})
	return v, v != nil
}

// DecodeJSON re-decodes the request's JSON body into dst. Handlers use
// it to get typed values out of the already-read body.
func DecodeJSON(ctx context.Context, dst any) error {
	raw, ok := ctx.Value(jsonKey{}).(json.RawMessage)
	if !ok {
		return errors.New("no JSON body on request")
	}
	return json.Unmarshal(raw, dst)
}

// Form returns the decoded URL-encoded form, if the request carried one.
func Form(ctx context.Context) (url.Values, bool) {
	v, ok := ctx.Value(formKey{}).(url.Values)
	return v, ok
}

// Decode is the body decoder stage. Requests with no body or an
// unrecognized content type pass through unchanged. The byte ceiling
// is enforced upstream by httpmw.MaxBody; reads past it surface here
// as *http.MaxBytesError.
func Decode(norm *httperr.Normalizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil {
				mt = strings.ToLower(strings.TrimSpace(ct))
			}

			switch mt {
			case "application/json":
				raw, err := io.ReadAll(r.Body)
				if err != nil {
					norm.Write(w, r, payloadErr(err))
					return
				}
				// decode once to validate; handlers re-decode into types
				var probe any
				if err := json.Unmarshal(raw, &probe); err != nil {
					norm.Write(w, r, httperr.Payload(http.StatusBadRequest, "malformed JSON body", err))
					return
				}
				ctx := context.WithValue(r.Context(), jsonKey{}, json.RawMessage(raw))
				// restore the body for handlers that stream it
				r.Body = io.NopCloser(bytes.NewReader(raw))
				next.ServeHTTP(w, r.WithContext(ctx))

			case "application/x-www-form-urlencoded":
				if err := r.ParseForm(); err != nil {
					norm.Write(w, r, payloadErr(err))
					return
				}
				ctx := context.WithValue(r.Context(), formKey{}, r.PostForm)
				next.ServeHTTP(w, r.WithContext(ctx))

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func payloadErr(err error) *httperr.Error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return httperr.Payload(http.StatusRequestEntityTooLarge, "request body too large", err)
	}
	return httperr.Payload(http.StatusBadRequest, "unreadable request body", err)
}
