package http

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	appemail "mailsweep/internal/application/email"
	domain "mailsweep/internal/domain/email"
)

const defaultLogLimit = 50

type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Forget() error
}

// SessionFactory opens a session for a freshly authorized token.
type SessionFactory func(ctx context.Context, tok *oauth2.Token) (*appemail.Session, error)

var errNoSession = errors.New("not signed in")

// Handler serves the web API. It holds at most one signed-in session.
type Handler struct {
	auth          Authenticator
	open          SessionFactory
	defaultFilter domain.Filter
	log           zerolog.Logger

	mu      sync.RWMutex
	session *appemail.Session
	state   string
}

func NewHandler(auth Authenticator, open SessionFactory, defaultFilter domain.Filter, log zerolog.Logger) *Handler {
	return &Handler{
		auth:          auth,
		open:          open,
		defaultFilter: defaultFilter,
		log:           log,
	}
}

// NewApp builds a fiber app with h registered and goccy/go-json as codec.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "mailsweep",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	h.Register(app)
	return app
}

func (h *Handler) Register(app fiber.Router) {
	app.Get("/healthz", h.Health)

	app.Get("/auth/url", h.AuthURL)
	app.Get("/oauth2callback", h.Callback)
	app.Post("/auth/logout", h.Logout)

	api := app.Group("/api", h.requireSession)
	api.Get("/labels", h.Labels)
	api.Post("/fetch", h.Fetch)
	api.Post("/delete", h.Delete)
	api.Get("/senders", h.Senders)
	api.Post("/senders/select", h.SelectSender)
	api.Get("/recommendations", h.Recommendations)
	api.Get("/summary", h.Summary)
	api.Get("/log", h.Log)
}

// SetSession installs s as the signed-in session, closing any previous one.
func (h *Handler) SetSession(s *appemail.Session) {
	h.mu.Lock()
	prev := h.session
	h.session = s
	h.mu.Unlock()

	if prev != nil && prev != s {
		prev.Close()
	}
}

func (h *Handler) current() *appemail.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

func (h *Handler) requireSession(c *fiber.Ctx) error {
	s := h.current()
	if s == nil {
		return h.errorResponse(c, errNoSession)
	}
	c.Locals("session", s)
	return c.Next()
}

func sessionOf(c *fiber.Ctx) *appemail.Session {
	s, _ := c.Locals("session").(*appemail.Session)
	return s
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"signed_in": h.current() != nil,
	})
}

func (h *Handler) AuthURL(c *fiber.Ctx) error {
	state := uuid.NewString()
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()

	return c.JSON(fiber.Map{"url": h.auth.AuthURL(state)})
}

func (h *Handler) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return errorJSON(c, fiber.StatusBadRequest, "code required")
	}

	h.mu.RLock()
	want := h.state
	h.mu.RUnlock()
	if want == "" || c.Query("state") != want {
		return errorJSON(c, fiber.StatusBadRequest, "state mismatch")
	}

	tok, err := h.auth.Exchange(c.UserContext(), code)
	if err != nil {
		return h.errorResponse(c, err)
	}
	s, err := h.open(c.UserContext(), tok)
	if err != nil {
		return h.errorResponse(c, err)
	}

	h.SetSession(s)
	h.mu.Lock()
	h.state = ""
	h.mu.Unlock()

	h.log.Info().Str("account", s.Account()).Msg("signed in")
	return c.JSON(fiber.Map{"account": s.Account()})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.mu.Unlock()

	if s != nil {
		s.Close()
	}
	if err := h.auth.Forget(); err != nil {
		h.log.Warn().Err(err).Msg("cannot forget token")
	}
	return c.JSON(fiber.Map{"signed_in": false})
}

func (h *Handler) Labels(c *fiber.Ctx) error {
	labels, err := sessionOf(c).Labels(c.UserContext())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"labels": labels})
}

type fetchRequest struct {
	AgeDays    *int     `json:"age_days"`
	UnreadOnly *bool    `json:"unread_only"`
	Sender     string   `json:"sender"`
	Subject    string   `json:"subject"`
	Labels     []string `json:"labels"`
	Preset     string   `json:"preset"`
}

func (r fetchRequest) filter(base domain.Filter) (domain.Filter, error) {
	f := base
	if r.AgeDays != nil {
		f.AgeDays = *r.AgeDays
	}
	if r.UnreadOnly != nil {
		f.UnreadOnly = *r.UnreadOnly
	}
	f.Sender = r.Sender
	f.Subject = r.Subject
	f.Labels = r.Labels
	if r.Preset != "" {
		return domain.Preset(r.Preset).Apply(f)
	}
	return f, nil
}

func (h *Handler) Fetch(c *fiber.Ctx) error {
	var req fetchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	f, err := req.filter(h.defaultFilter)
	if err != nil {
		return h.errorResponse(c, err)
	}

	snap, err := sessionOf(c).Fetch(c.UserContext(), f)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(snap)
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	res, snap, err := sessionOf(c).Delete(c.UserContext(), req.IDs)
	if res == nil {
		return h.errorResponse(c, err)
	}

	status := fiber.StatusOK
	body := fiber.Map{
		"result":   res,
		"status":   res.Status(),
		"snapshot": snap,
	}
	if err != nil {
		body["error"] = err.Error()
		if errors.Is(err, domain.ErrAuthExpired) {
			status = fiber.StatusUnauthorized
		}
	}
	return c.Status(status).JSON(body)
}

func (h *Handler) Senders(c *fiber.Ctx) error {
	snap := sessionOf(c).Snapshot()
	return c.JSON(fiber.Map{
		"query":   snap.Query,
		"total":   len(snap.Messages),
		"senders": snap.Senders,
	})
}

type selectRequest struct {
	Sender string `json:"sender"`
}

func (h *Handler) SelectSender(c *fiber.Ctx) error {
	var req selectRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Sender) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "sender required")
	}
	ids := sessionOf(c).SelectBySender(req.Sender)
	return c.JSON(fiber.Map{
		"sender":      domain.NormalizeSender(req.Sender),
		"message_ids": ids,
	})
}

func (h *Handler) Recommendations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"recommendations": sessionOf(c).Recommendations()})
}

func (h *Handler) Summary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"summary": sessionOf(c).Summary(c.UserContext())})
}

func (h *Handler) Log(c *fiber.Ctx) error {
	rec := sessionOf(c).Recorder()
	return c.JSON(fiber.Map{
		"entries": rec.Recent(c.QueryInt("limit", defaultLogLimit)),
		"stats":   rec.DeletionStats(),
	})
}

func (h *Handler) errorResponse(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return errorJSON(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoSession),
		errors.Is(err, appemail.ErrSessionClosed),
		errors.Is(err, domain.ErrAuthExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrProviderUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrNoMessages):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
