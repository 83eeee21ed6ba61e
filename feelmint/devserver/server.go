// Package devserver is an in-memory implementation of the backend contract
// the client core talks to. It backs the CLI's --dev mode and the integration
// tests; it is not the production backend.
package devserver

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
)

type Server struct {
	app     *fiber.App
	store   *Store
	baseURL string
}

// DevSignKey is the well-known voucher signing key for local runs.
const DevSignKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func New(baseURL, signKeyHex string) (*Server, error) {
	if signKeyHex == "" {
		signKeyHex = DevSignKey
	}
	store, err := NewStore(signKeyHex)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "feelmint dev API",
		ServerHeader: "feelmint-dev",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(loggingMiddleware())

	s := &Server{app: app, store: store, baseURL: baseURL}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	// The upload sink mimics presigned storage: no session required.
	s.app.Put("/uploads/:key", s.handleUpload)
	s.app.Get("/files/:key", s.handleFile)

	v1 := s.app.Group("/api/v1", authMiddleware())

	v1.Get("/tasks/daily", s.handleDailyTasks)
	v1.Post("/tasks/upload-url", s.handleUploadTicket)
	v1.Post("/tasks/:id/submit", s.handleSubmit)

	v1.Get("/rewards/claimable", s.handleClaimable)
	v1.Get("/rewards/records", s.handleRecords)
	v1.Post("/rewards/voucher", s.handleVoucher)
	v1.Post("/rewards/claimed", s.handleClaimed)

	v1.Get("/profile", s.handleProfile)
	v1.Patch("/profile", s.handleUpdateProfile)
	v1.Get("/profile/nickname-available", s.handleNicknameAvailable)

	v1.Post("/referral/verify", s.handleVerifyCode)
	v1.Post("/referral/bind", s.handleBindCode)
	v1.Get("/referral/invitees", s.handleInvitees)

	v1.Get("/config/chains", s.handleChains)
	v1.Post("/pro/activate", s.handleActivateTier)
}

// App exposes the fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	slog.Info("Dev API listening",
		slog.String("type", "sys"),
		slog.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return sendError(c, code, "INTERNAL", err.Error())
}

func loggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}
		slog.Log(c.UserContext(), level, "Request handled",
			slog.String("type", "api"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)))
		return err
	}
}

const tokenKey = "devToken"

func authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			return sendError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		}
		// Copy out of fiber's reused request buffer: the token is kept
		// beyond the request's lifetime as a store map key.
		c.Locals(tokenKey, utils.CopyString(header[len(prefix):]))
		return c.Next()
	}
}

func token(c *fiber.Ctx) string {
	if v, ok := c.Locals(tokenKey).(string); ok {
		return v
	}
	return ""
}
