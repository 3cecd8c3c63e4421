package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// storeHandle keeps the payload in the Manager's Store; the cookie carries
// only a random session id.
type storeHandle struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request

	id     string
	loaded bool
	data   []byte
}

// sessionID returns the id from the request cookie, or "" when the cookie is
// missing or not a well-formed id.
func (h *storeHandle) sessionID() string {
	if h.id != "" {
		return h.id
	}

	c, err := h.r.Cookie(h.m.opts.CookieName)
	if err != nil {
		return ""
	}

	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}

	h.id = c.Value

	return h.id
}

func (h *storeHandle) Get(ctx context.Context) ([]byte, error) {
	if h.loaded {
		return h.data, nil
	}

	id := h.sessionID()
	if id == "" {
		h.loaded = true
		return nil, nil
	}

	data, err := h.m.store.Load(ctx, storeKey(id), h.m.nowFunc())
	if err != nil {
		return nil, fmt.Errorf("session: loading: %w", err)
	}

	h.loaded = true
	h.data = data

	return data, nil
}

func (h *storeHandle) Put(ctx context.Context, data []byte) error {
	id := h.sessionID()
	if id == "" {
		id = uuid.NewString()
		h.id = id
	}

	if err := h.m.store.Save(ctx, storeKey(id), data, h.m.nowFunc().Add(h.m.opts.MaxAge)); err != nil {
		return fmt.Errorf("session: saving: %w", err)
	}

	http.SetCookie(h.w, h.m.newCookie(h.m.opts.CookieName, id, h.m.opts.MaxAge))

	h.loaded = true
	h.data = append([]byte(nil), data...)

	return nil
}

func (h *storeHandle) Delete(ctx context.Context) error {
	if id := h.sessionID(); id != "" {
		if err := h.m.store.Delete(ctx, storeKey(id)); err != nil {
			return fmt.Errorf("session: deleting: %w", err)
		}
	}

	http.SetCookie(h.w, h.m.newCookie(h.m.opts.CookieName, "", 0))

	h.id = ""
	h.loaded = true
	h.data = nil

	return nil
}
