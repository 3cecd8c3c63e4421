package web

import (
	"log/slog"
	"net/http"

	"github.com/tonimelisma/viewhubs/internal/forge"
	"github.com/tonimelisma/viewhubs/internal/forgeauth"
	"github.com/tonimelisma/viewhubs/internal/tree"
)

// profileImageSize is the profile image rendered next to the user name.
const profileImageSize = "sizeX40"

type profileResponse struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type clientIDResponse struct {
	ID string `json:"id"`
}

func (h *handlers) handleAuthURL(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, h.Auth.AuthorizationURL(forgeauth.InternalScopes))
}

func (h *handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		LoggerFrom(r.Context(), h.Logger).Warn("authorization denied by provider",
			slog.String("error", providerErr),
			slog.String("error_description", q.Get("error_description")),
		)

		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:            codeProviderDenied,
			ErrorDescription: q.Get("error_description"),
		})

		return
	}

	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: codeMissingCode})

		return
	}

	if err := h.Auth.SignIn(r.Context(), h.Sessions.Handle(w, r), code); err != nil {
		h.fail(w, r, err)

		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handlers) handleToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.Auth.PublicToken(r.Context(), h.Sessions.Handle(w, r))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, tok)
}

func (h *handlers) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.SignOut(r.Context(), h.Sessions.Handle(w, r)); err != nil {
		h.fail(w, r, err)

		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handlers) handleClientID(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, clientIDResponse{ID: h.Auth.ClientID()})
}

func (h *handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	client, err := h.sessionClient(w, r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	profile, err := client.UserProfile(r.Context())
	if err != nil {
		h.fail(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Name:    profile.FirstName + " " + profile.LastName,
		Picture: profile.ProfileImage(profileImageSize),
	})
}

func (h *handlers) handleDataManagement(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	// Reject malformed ids before touching the session or the remote API.
	if _, err := tree.Classify(id); err != nil {
		h.fail(w, r, err)

		return
	}

	client, err := h.sessionClient(w, r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	nodes, err := h.Resolver.Children(r.Context(), client, id)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	if nodes == nil {
		nodes = []tree.Node{}
	}

	writeJSON(w, http.StatusOK, nodes)
}

// sessionClient binds the session's internal token to a copy of the
// remote client. A refresh triggered here rewrites the session cookie, so
// it must run before any body is written.
func (h *handlers) sessionClient(w http.ResponseWriter, r *http.Request) (*forge.Client, error) {
	tok, err := h.Auth.InternalToken(r.Context(), h.Sessions.Handle(w, r))
	if err != nil {
		return nil, err
	}

	return h.Client.WithToken(forge.StaticToken(tok.AccessToken)), nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}
