package wsrv

import "net/http"

// Endpoint is one HTTP route's metadata.
type Endpoint struct {
	Method         string
	Path           string
	AuthRequired   bool
	AllowPeerCreds bool
	Handler        http.HandlerFunc
}

// wrap runs the auth pipeline ahead of the handler and converts any
// panic into a logged 500 envelope; handlers report expected errors
// themselves through WriteError.
func (s *Server) wrap(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ep.AuthRequired {
			user, err := s.authenticate(r, ep.AllowPeerCreds)
			if err != nil {
				WriteError(w, err)
				return
			}
			r = r.WithContext(contextWithUser(r.Context(), user))
		}

		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler", "path", ep.Path, "recover", rec)
				WriteError(w, errInternalPanic(rec))
			}
		}()

		ep.Handler(w, r)
	}
}
