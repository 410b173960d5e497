package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthQuery holds the OAuth callback parameters. It is validated and
// exchanged, never persisted.
type AuthQuery struct {
	Code      string
	Timestamp string
	State     string
	Shop      string
	Host      string
	HMAC      string
}

// ParseAuthQuery extracts the callback fields from a query string and
// reports which required ones were absent.
func ParseAuthQuery(values url.Values) (AuthQuery, error) {
	q := AuthQuery{
		Code:      values.Get("code"),
		Timestamp: values.Get("timestamp"),
		State:     values.Get("state"),
		Shop:      values.Get("shop"),
		Host:      values.Get("host"),
		HMAC:      values.Get("hmac"),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"code", q.Code},
		{"timestamp", q.Timestamp},
		{"state", q.State},
		{"shop", q.Shop},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return q, fmt.Errorf("missing callback parameters: %s", strings.Join(missing, ", "))
	}
	return q, nil
}

// SignedFields returns the fields covered by the callback signature, i.e.
// everything except the hmac parameter itself.
func (q AuthQuery) SignedFields() map[string]string {
	fields := map[string]string{
		"code":      q.Code,
		"timestamp": q.Timestamp,
		"state":     q.State,
		"shop":      q.Shop,
	}
	if q.Host != "" {
		fields["host"] = q.Host
	}
	return fields
}
