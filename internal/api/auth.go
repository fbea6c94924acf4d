package api

import (
	"net/http"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

// authEndpoints are the only public routes besides nothing: login and
// logout are reachable without credentials, check runs the full
// pipeline.
func (a *API) authEndpoints() []wsrv.Endpoint {
	return []wsrv.Endpoint{
		{Method: http.MethodPost, Path: "/auth/login", Handler: a.handleAuthLogin},
		{Method: http.MethodPost, Path: "/auth/logout", Handler: a.handleAuthLogout},
		{Method: http.MethodGet, Path: "/auth/check", AuthRequired: true, AllowPeerCreds: true,
			Handler: func(w http.ResponseWriter, r *http.Request) { wsrv.WriteJSON(w, struct{}{}) }},
	}
}

func (a *API) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if a.c.Auth == nil {
		wsrv.WriteError(w, kvmerr.Operation("authentication is disabled"))
		return
	}
	if err := r.ParseForm(); err != nil {
		wsrv.WriteError(w, kvmerr.Validation("bad form body: %v", err))
		return
	}

	user := r.PostFormValue("user")
	passwd := r.PostFormValue("passwd")
	if user == "" {
		wsrv.WriteError(w, kvmerr.Validation("missing user"))
		return
	}

	token, err := a.c.Auth.Login(user, passwd)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if a.c.Auth == nil {
		wsrv.WriteError(w, kvmerr.Operation("authentication is disabled"))
		return
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		a.c.Auth.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   "auth_token",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	wsrv.WriteJSON(w, struct{}{})
}
