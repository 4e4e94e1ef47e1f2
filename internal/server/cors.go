package server

import (
	"net/http"
	"strings"
)

const (
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type"
)

// AccessPolicy decides the CORS grant for a request origin. An allow-list
// containing "*" grants every origin; an empty one grants none.
type AccessPolicy struct {
	open    bool
	origins []string
}

func NewAccessPolicy(origins []string) AccessPolicy {
	p := AccessPolicy{}
	for _, o := range origins {
		if o == "*" {
			return AccessPolicy{open: true}
		}
		if o != "" {
			p.origins = append(p.origins, o)
		}
	}
	return p
}

// Decision is the header set computed for one request.
type Decision struct {
	AllowOrigin  string
	AllowMethods string
	AllowHeaders string
}

// Decide returns the grant for origin. AllowOrigin is empty when the origin
// matches no allow-list entry; the matching entry is returned verbatim, not
// the caller's origin.
func (p AccessPolicy) Decide(origin string) Decision {
	d := Decision{AllowMethods: allowMethods, AllowHeaders: allowHeaders}
	if p.open {
		d.AllowOrigin = "*"
		return d
	}
	if origin == "" {
		return d
	}
	for _, allowed := range p.origins {
		if strings.Contains(origin, allowed) {
			d.AllowOrigin = allowed
			break
		}
	}
	return d
}

// cors sets the policy headers on every response and answers pre-flight
// requests without reaching the router.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = r.Header.Get("Referer")
		}
		d := s.policy.Decide(origin)
		if d.AllowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", d.AllowOrigin)
		}
		w.Header().Set("Access-Control-Allow-Methods", d.AllowMethods)
		w.Header().Set("Access-Control-Allow-Headers", d.AllowHeaders)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
