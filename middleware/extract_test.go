package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParameterNameToHeader(t *testing.T) {
	require.Equal(t, "x-access-token", ParameterNameToHeader("accessToken"))
	require.Equal(t, "x-session-id", ParameterNameToHeader("sessionID"))
	require.Equal(t, "x-token", ParameterNameToHeader("token"))
}

func TestExtractPrecedence(t *testing.T) {
	x := NewExtractor("accessToken")

	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/items?accessToken=from-query", strings.NewReader(`{"accessToken":"from-body"}`))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Access-Token", "from-header")
		r.AddCookie(&http.Cookie{Name: "x-access-token", Value: "from-cookie"})
		r.SetPathValue("accessToken", "from-path")
		return r
	}

	r := newReq()
	token, src := x.Extract(r)
	require.Equal(t, "from-path", token)
	require.Equal(t, SourcePath, src)

	r = newReq()
	r.SetPathValue("accessToken", "")
	token, src = x.Extract(r)
	require.Equal(t, "from-body", token)
	require.Equal(t, SourceBody, src)

	r = httptest.NewRequest(http.MethodGet, "/items?accessToken=from-query", nil)
	r.Header.Set("X-Access-Token", "from-header")
	token, src = x.Extract(r)
	require.Equal(t, "from-query", token)
	require.Equal(t, SourceQuery, src)

	r = httptest.NewRequest(http.MethodGet, "/items", nil)
	r.Header.Set("X-Access-Token", "from-header")
	r.AddCookie(&http.Cookie{Name: "x-access-token", Value: "from-cookie"})
	token, src = x.Extract(r)
	require.Equal(t, "from-header", token)
	require.Equal(t, SourceHeader, src)

	r = httptest.NewRequest(http.MethodGet, "/items", nil)
	r.AddCookie(&http.Cookie{Name: "x-access-token", Value: "from-cookie"})
	token, src = x.Extract(r)
	require.Equal(t, "from-cookie", token)
	require.Equal(t, SourceCookie, src)

	token, src = x.Extract(httptest.NewRequest(http.MethodGet, "/items", nil))
	require.Empty(t, token)
	require.Equal(t, SourceNone, src)
	require.Equal(t, "none", src.String())
}

func TestExtractJSONBodyIsRestored(t *testing.T) {
	x := NewExtractor("accessToken")
	body := `{"accessToken":"tok","other":1}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	token, src := x.Extract(r)
	require.Equal(t, "tok", token)
	require.Equal(t, SourceBody, src)

	rest, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.Equal(t, body, string(rest))
}

func TestExtractJSONIgnoresNonStringAndNonObject(t *testing.T) {
	x := NewExtractor("accessToken")
	for _, body := range []string{`{"accessToken":42}`, `["accessToken"]`, `not json`} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		token, src := x.Extract(r)
		require.Empty(t, token, body)
		require.Equal(t, SourceNone, src, body)
	}
}

func TestExtractFormBodies(t *testing.T) {
	x := NewExtractor("accessToken")

	form := url.Values{"accessToken": {"form-tok"}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	token, src := x.Extract(r)
	require.Equal(t, "form-tok", token)
	require.Equal(t, SourceBody, src)
	require.NoError(t, r.ParseForm())
	require.Equal(t, "form-tok", r.PostForm.Get("accessToken"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("accessToken", "multi-tok"))
	require.NoError(t, mw.Close())
	r = httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	token, src = x.Extract(r)
	require.Equal(t, "multi-tok", token)
	require.Equal(t, SourceBody, src)
}

func TestExtractOversizedBodyFallsThrough(t *testing.T) {
	x := NewExtractor("accessToken")
	x.MaxBodyBytes = 16
	body := `{"accessToken":"this-body-is-longer-than-the-limit"}`
	r := httptest.NewRequest(http.MethodPost, "/?accessToken=q", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	token, src := x.Extract(r)
	require.Equal(t, "q", token)
	require.Equal(t, SourceQuery, src)

	rest, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.Equal(t, body, string(rest))
}

func TestExtractCustomPathValue(t *testing.T) {
	x := NewExtractor("sid")
	x.PathValue = func(_ *http.Request, name string) string {
		if name == "sid" {
			return "routed"
		}
		return ""
	}
	token, src := x.Extract(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "routed", token)
	require.Equal(t, SourcePath, src)
}
