package postback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedRequest 请求体无法解析，是唯一会返回 400 的情况
var ErrMalformedRequest = errors.New("malformed request")

const maxBodyBytes = 1 << 20

// Params 扁平化后的回传参数
type Params map[string]string

// Get 返回第一个非空的参数值，用于 offer_id/survey_id 这类固定顺序的别名
func (p Params) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(p[k]); v != "" {
			return v
		}
	}
	return ""
}

// Inbound 解析后的入站请求，原始字段用于审计
type Inbound struct {
	Method   string
	RemoteIP string
	RawQuery string
	RawBody  string
	Params   Params
}

// ParseRequest 合并查询参数和请求体（JSON 对象或表单），同名时请求体优先
func ParseRequest(r *http.Request) (*Inbound, error) {
	in := &Inbound{
		Method:   r.Method,
		RemoteIP: remoteIP(r.RemoteAddr),
		RawQuery: r.URL.RawQuery,
		Params:   Params{},
	}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			in.Params[k] = vs[0]
		}
	}

	if r.Body == nil {
		return in, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrMalformedRequest, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body too large", ErrMalformedRequest)
	}
	in.RawBody = string(body)

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return in, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var fields Params
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		fields, err = parseJSON(trimmed)
	case mediaType == "application/x-www-form-urlencoded":
		fields, err = parseForm(trimmed)
	case trimmed[0] == '{' || trimmed[0] == '[':
		fields, err = parseJSON(trimmed)
	default:
		fields, err = parseForm(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	for k, v := range fields {
		in.Params[k] = v
	}
	return in, nil
}

func parseJSON(body []byte) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("json body must be an object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after json object")
	}

	out := make(Params, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			out[k] = string(raw)
		}
	}
	return out, nil
}

func parseForm(body []byte) (Params, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	out := make(Params, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out, nil
}

func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
