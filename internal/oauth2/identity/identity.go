// Package identity talks to the Identity Bridge, the service that checks
// PESU portal credentials and scrapes the owner's profile.
package identity

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
)

// ErrUnavailable is returned when the bridge could not be reached or
// answered with something unusable. Callers must not show it to users.
var ErrUnavailable = errors.New("identity: bridge unavailable")

// Result is the outcome of a credential check. Success false with a nil
// error means the bridge rejected the credentials; Error then carries its
// user facing reason.
type Result struct {
	Success bool
	Profile domain.Profile
	Error   string
}

type Bridge interface {
	Authenticate(ctx context.Context, username, password string) (Result, error)
}

var campusPattern = regexp.MustCompile(`^(?i)PES(\d)`)

// Normalize fills derived attributes the portal does not return directly
// and strips data URL prefixes from the photo. Nil values are dropped so a
// later merge keeps what was known before.
func Normalize(p domain.Profile) domain.Profile {
	out := domain.Profile{}
	for k, v := range p {
		if v != nil {
			out[k] = v
		}
	}

	if photo, ok := out["photo_base64"].(string); ok {
		if i := strings.LastIndex(photo, "base64,"); i >= 0 {
			out["photo_base64"] = strings.TrimSpace(photo[i+len("base64,"):])
		}
	}

	if !out.Has("campus_code") {
		prn, _ := out["prn"].(string)
		if m := campusPattern.FindStringSubmatch(prn); m != nil {
			code, _ := strconv.Atoi(m[1])
			out["campus_code"] = code
			if !out.Has("campus") {
				out["campus"] = campusName(code)
			}
		}
	}
	return out
}

func campusName(code int) string {
	if code == 1 {
		return "RR"
	}
	return "EC"
}
