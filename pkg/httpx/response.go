package httpx

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// WriteJSON writes v with the given status. Responses are never cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks a response as containing credentials or personal data.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits a scope style list. Blank input yields nil.
func ParseSpaceDelimitedFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

// ExtractBearerToken returns the credential of an "Authorization: Bearer"
// header, or "" when the header is absent or uses another scheme.
func ExtractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ParseParams reads request parameters from either a form body or a flat
// JSON object, so token requests work for both encodings. JSON numbers and
// booleans are stringified; arrays become repeated values.
func ParseParams(r *http.Request) (url.Values, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}

	var raw map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(&raw); err != nil {
		return nil, err
	}

	values := url.Values{}
	for k, v := range raw {
		switch tv := v.(type) {
		case nil:
		case []any:
			for _, item := range tv {
				values.Add(k, stringify(item))
			}
		default:
			values.Set(k, stringify(tv))
		}
	}
	return values, nil
}

func stringify(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	default:
		b, _ := json.Marshal(tv)
		return string(b)
	}
}
