package registry

import (
	"net/url"
	"strings"
)

// Key derives the composite directory key for a tenant's cache of one model.
// Both parts are path-escaped, so the separator never occurs inside a part
// and distinct pairs always yield distinct keys.
func Key(tenant, model string) string {
	return url.PathEscape(tenant) + "/" + url.PathEscape(model)
}

// ParseKey splits a composite key back into tenant and model.
func ParseKey(key string) (tenant, model string, ok bool) {
	t, m, found := strings.Cut(key, "/")
	if !found {
		return "", "", false
	}
	tenant, err := url.PathUnescape(t)
	if err != nil {
		return "", "", false
	}
	model, err = url.PathUnescape(m)
	if err != nil {
		return "", "", false
	}
	return tenant, model, true
}
