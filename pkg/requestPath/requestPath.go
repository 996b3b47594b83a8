package requestPath

import (
	"fmt"
	"net/url"
	"strings"
)

// ApiVersionPrefix is prepended to every endpoint before signing.
const ApiVersionPrefix = "/v3"

type Param struct {
	Name  string
	Value string
}

// Params is an ordered set of query parameters. Order is preserved in the
// generated query string since the signed request path depends on it.
type Params []Param

// Add returns a copy of p with the param appended. p itself is never modified.
func (p Params) Add(name, value string) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	return append(out, Param{Name: name, Value: value})
}

// Get returns the first value for name.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// GenerateQueryPath appends params to basePath as "?name=value&..." with values
// query-escaped. An empty set returns basePath unchanged.
func GenerateQueryPath(basePath string, params Params) string {
	if len(params) == 0 {
		return basePath
	}

	pairs := make([]string, 0, len(params))
	for _, param := range params {
		pairs = append(pairs, fmt.Sprintf("%s=%s", param.Name, url.QueryEscape(param.Value)))
	}
	return basePath + "?" + strings.Join(pairs, "&")
}

// ParseQuery decodes a raw query string into Params, keeping the wire order.
func ParseQuery(rawQuery string) (Params, error) {
	params := Params{}
	if rawQuery == "" {
		return params, nil
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter name %q: %w", name, err)
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter value for %q: %w", decodedName, err)
		}
		params = append(params, Param{Name: decodedName, Value: decodedValue})
	}
	return params, nil
}

// Versioned joins the API version prefix and an endpoint, e.g. "api-keys" -> "/v3/api-keys".
func Versioned(endpoint string) string {
	return ApiVersionPrefix + "/" + strings.TrimPrefix(endpoint, "/")
}
