package httputils

import "net/url"

// GetQueryParam returns a pointer to the query parameter value, or nil when the
// parameter is missing or empty.
func GetQueryParam(values url.Values, key string) *string {
	val := values.Get(key)
	if val == "" {
		return nil
	}
	return &val
}
