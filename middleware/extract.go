package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/goSession/internal/paramname"
)

// Source tells where a token was found in the request.
type Source int

// Token sources, in extraction order after SourceNone.
const (
	// SourceNone means no token was found.
	SourceNone Source = iota
	// SourcePath is a route variable named like the parameter.
	SourcePath
	// SourceBody is a JSON, urlencoded or multipart body field.
	SourceBody
	// SourceQuery is a query string parameter.
	SourceQuery
	// SourceHeader is the header form of the parameter, e.g. x-access-token.
	SourceHeader
	// SourceCookie is a cookie named like the header.
	SourceCookie
)

func (s Source) String() string {
	switch s {
	case SourcePath:
		return "path"
	case SourceBody:
		return "body"
	case SourceQuery:
		return "query"
	case SourceHeader:
		return "header"
	case SourceCookie:
		return "cookie"
	default:
		return "none"
	}
}

const (
	defaultMaxBodyBytes = 1 << 20
	multipartMemory     = 32 << 10
)

// ParameterNameToHeader converts a parameter name to its header form:
// accessToken becomes x-access-token.
func ParameterNameToHeader(param string) string {
	return paramname.ToHeader(param)
}

// Extractor finds the session token in a request. The first non-empty
// candidate wins, in this order: path value, body field, query parameter,
// header, cookie. Header and cookie use the header form of Param.
type Extractor struct {
	Param  string
	Header string
	// PathValue reads a route variable. It defaults to
	// (*http.Request).PathValue; set it for third-party routers.
	PathValue    func(r *http.Request, name string) string
	MaxBodyBytes int64
}

// NewExtractor returns an Extractor for param.
func NewExtractor(param string) *Extractor {
	return &Extractor{
		Param:        param,
		Header:       ParameterNameToHeader(param),
		MaxBodyBytes: defaultMaxBodyBytes,
	}
}

// Extract returns the token and where it came from. A request without a
// token yields ("", SourceNone). The body is restored after inspection, so
// downstream handlers can read it again.
func (x *Extractor) Extract(r *http.Request) (string, Source) {
	if x == nil || r == nil || x.Param == "" {
		return "", SourceNone
	}

	pathValue := x.PathValue
	if pathValue == nil {
		pathValue = (*http.Request).PathValue
	}
	if v := pathValue(r, x.Param); v != "" {
		return v, SourcePath
	}

	if v := x.fromBody(r); v != "" {
		return v, SourceBody
	}

	if v := r.URL.Query().Get(x.Param); v != "" {
		return v, SourceQuery
	}

	header := x.Header
	if header == "" {
		header = ParameterNameToHeader(x.Param)
	}
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v, SourceHeader
	}

	if c, err := r.Cookie(header); err == nil && c.Value != "" {
		return c.Value, SourceCookie
	}

	return "", SourceNone
}

func (x *Extractor) fromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	switch mediaType {
	case "application/json", "application/x-www-form-urlencoded", "multipart/form-data":
	default:
		return ""
	}

	raw, err := x.readBody(r)
	if err != nil || len(raw) == 0 {
		return ""
	}

	switch mediaType {
	case "application/json":
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return ""
		}
		var v string
		if err := json.Unmarshal(fields[x.Param], &v); err != nil {
			return ""
		}
		return v
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return ""
		}
		return values.Get(x.Param)
	default:
		boundary := params["boundary"]
		if boundary == "" {
			return ""
		}
		form, err := multipart.NewReader(bytes.NewReader(raw), boundary).ReadForm(multipartMemory)
		if err != nil {
			return ""
		}
		defer form.RemoveAll()
		if vs := form.Value[x.Param]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
}

var errBodyTooLarge = errors.New("request body exceeds token scan limit")

// readBody reads at most MaxBodyBytes and puts the bytes back in front of
// whatever was left unread.
func (x *Extractor) readBody(r *http.Request) ([]byte, error) {
	limit := x.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), r.Body), r.Body}
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, errBodyTooLarge
	}
	return raw, nil
}
