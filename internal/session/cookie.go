package session

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// minSecretLen is the shortest secret accepted for key derivation.
	minSecretLen = 32

	// maxChunkLen keeps each cookie under the common 4096-byte browser limit
	// once name and attributes are added.
	maxChunkLen = 3800

	// maxChunks bounds how many cookies one session may span.
	maxChunks = 8

	keyInfo = "viewhubs session cookie v1"
)

// ErrShortSecret is returned when the cookie secret is too short.
var ErrShortSecret = errors.New("session: secret must be at least 32 bytes")

// ErrTooLarge is returned by Put when the sealed payload exceeds maxChunks cookies.
var ErrTooLarge = errors.New("session: payload too large for cookie")

// sealer encrypts cookie payloads with XChaCha20-Poly1305. The plaintext is
// prefixed with an 8-byte big-endian unix expiry so replayed cookies die with
// their Max-Age.
type sealer struct {
	aead cipher.AEAD
	ad   []byte
}

func newSealer(secret []byte, cookieName string) (*sealer, error) {
	if len(secret) < minSecretLen {
		return nil, ErrShortSecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("session: deriving cookie key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("session: creating cipher: %w", err)
	}

	return &sealer{aead: aead, ad: []byte(cookieName)}, nil
}

func (s *sealer) seal(data []byte, expiresAt time.Time) (string, error) {
	plain := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(plain, uint64(expiresAt.Unix())) //nolint:gosec // unix time is positive
	copy(plain[8:], data)

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("session: generating nonce: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(s.aead.Seal(nonce, nonce, plain, s.ad)), nil
}

// open returns nil for anything that fails to decode, authenticate or has
// expired.
func (s *sealer) open(value string, now time.Time) []byte {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead()+8 {
		return nil
	}

	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]

	plain, err := s.aead.Open(nil, nonce, ct, s.ad)
	if err != nil {
		return nil
	}

	exp := time.Unix(int64(binary.BigEndian.Uint64(plain[:8])), 0) //nolint:gosec // written by seal
	if !now.Before(exp) {
		return nil
	}

	return plain[8:]
}

// cookieHandle stores the sealed payload in one or more cookies named
// <name>, <name>.1, <name>.2, ...
type cookieHandle struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request

	loaded bool
	data   []byte
}

func (h *cookieHandle) chunkName(i int) string {
	if i == 0 {
		return h.m.opts.CookieName
	}

	return h.m.opts.CookieName + "." + strconv.Itoa(i)
}

// requestChunks returns the cookie chunks present on the request, in order.
func (h *cookieHandle) requestChunks() []string {
	var chunks []string

	for i := range maxChunks {
		c, err := h.r.Cookie(h.chunkName(i))
		if err != nil {
			break
		}

		chunks = append(chunks, c.Value)
	}

	return chunks
}

func (h *cookieHandle) Get(_ context.Context) ([]byte, error) {
	if h.loaded {
		return h.data, nil
	}

	h.loaded = true

	chunks := h.requestChunks()
	if len(chunks) == 0 {
		return nil, nil
	}

	h.data = h.m.sealer.open(strings.Join(chunks, ""), h.m.nowFunc())
	if h.data == nil {
		h.m.logger.Debug("discarding unreadable session cookie",
			slog.String("cookie", h.m.opts.CookieName),
		)
	}

	return h.data, nil
}

func (h *cookieHandle) Put(_ context.Context, data []byte) error {
	value, err := h.m.sealer.seal(data, h.m.nowFunc().Add(h.m.opts.MaxAge))
	if err != nil {
		return err
	}

	var chunks []string
	for len(value) > maxChunkLen {
		chunks = append(chunks, value[:maxChunkLen])
		value = value[maxChunkLen:]
	}

	chunks = append(chunks, value)

	if len(chunks) > maxChunks {
		return fmt.Errorf("%w: %d cookies needed", ErrTooLarge, len(chunks))
	}

	for i, chunk := range chunks {
		http.SetCookie(h.w, h.m.newCookie(h.chunkName(i), chunk, h.m.opts.MaxAge))
	}

	for i := len(chunks); i < len(h.requestChunks()); i++ {
		http.SetCookie(h.w, h.m.newCookie(h.chunkName(i), "", 0))
	}

	h.loaded = true
	h.data = append([]byte(nil), data...)

	return nil
}

func (h *cookieHandle) Delete(_ context.Context) error {
	n := max(len(h.requestChunks()), 1)
	for i := range n {
		http.SetCookie(h.w, h.m.newCookie(h.chunkName(i), "", 0))
	}

	h.loaded = true
	h.data = nil

	return nil
}
