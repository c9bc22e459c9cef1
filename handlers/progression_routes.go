// handlers/progression_routes.go
package handlers

import (
	"context"
	"errors"
	"strconv"

	"practice-hub/middleware"
	"practice-hub/models"
	"practice-hub/services"
	"practice-hub/utils"

	"github.com/gofiber/fiber/v2"
)

// SessionRecorder stores a submitted practice session. InTx lets the session and its
// scoring commit or roll back together.
type SessionRecorder interface {
	RecordPracticeSession(ctx context.Context, session *models.PracticeSession) error
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

func SetupProgressionRoutes(app *fiber.App, progression *services.ProgressionService, recorder SessionRecorder, log *utils.Logger) {
	log = log.With("handler", "progression")

	// The gateway forwards /api/v1/practice/s/user/... -> /user/...
	user := app.Group("/user", middleware.UserContextMiddleware(log))

	user.Get("/progress", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		stats, err := progression.EnsureStatsRecord(c.UserContext(), userID)
		if err != nil {
			return fail(c, "failed to load progress", err)
		}
		return c.JSON(fiber.Map{
			"stats":          stats,
			"level_floor_xp": services.XPForLevel(stats.CurrentLevel),
			"next_level_xp":  services.XPForLevel(stats.CurrentLevel + 1),
			"level_from_xp":  services.CalculateLevelFromXP(stats.TotalXP),
		})
	})

	user.Post("/practice", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		var req struct {
			DurationMinutes     float64 `json:"duration_minutes"`
			SentimentScore      int     `json:"sentiment_score"`
			ImprovementDetected bool    `json:"improvement_detected"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.DurationMinutes <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "duration_minutes must be positive",
			})
		}

		session := &models.PracticeSession{
			UserID:              userID,
			DurationMinutes:     req.DurationMinutes,
			SentimentScore:      req.SentimentScore,
			ImprovementDetected: req.ImprovementDetected,
		}
		var outcome *services.PracticeOutcome
		err := recorder.InTx(c.UserContext(), func(ctx context.Context) error {
			if err := recorder.RecordPracticeSession(ctx, session); err != nil {
				return err
			}
			var err error
			outcome, err = progression.ProcessPracticeSession(ctx, userID, *session)
			return err
		})
		if err != nil {
			return fail(c, "failed to record practice session", err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"session": session,
			"outcome": outcome,
		})
	})

	user.Get("/progress/badges", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		badges, err := progression.EarnedBadges(c.UserContext(), userID)
		if err != nil {
			return fail(c, "failed to get badges", err)
		}
		return c.JSON(badges)
	})

	user.Post("/progress/badges/check", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		awarded, err := progression.CheckAndAwardBadges(c.UserContext(), userID)
		if err != nil {
			return fail(c, "badge check failed", err)
		}
		return c.JSON(fiber.Map{"new_badges": awarded})
	})

	user.Post("/shields/purchase", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		stats, err := progression.PurchaseStreakShield(c.UserContext(), userID)
		if err != nil {
			return fail(c, "shield purchase failed", err)
		}
		return c.JSON(stats)
	})

	user.Get("/gems/transactions", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		page, err := strconv.Atoi(c.Query("page", "1"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "page must be an integer",
			})
		}
		size, err := strconv.Atoi(c.Query("size", "20"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "size must be an integer",
			})
		}
		page, size = services.NormalizePage(page, size)
		txs, err := progression.GemTransactions(c.UserContext(), userID, page, size)
		if err != nil {
			return fail(c, "failed to get gem transactions", err)
		}
		return c.JSON(fiber.Map{
			"transactions": txs,
			"page":         page,
			"size":         size,
		})
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(log), middleware.RequireRole("admin"))

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.XP < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and a positive xp are required",
			})
		}

		stats, err := progression.AddXP(c.UserContext(), req.UserID, req.XP)
		if err != nil {
			return fail(c, "XP award failed", err)
		}
		levelUp, err := progression.CheckLevelUp(c.UserContext(), req.UserID)
		if err != nil {
			return fail(c, "level check failed", err)
		}
		log.Info("🎮 XP granted by admin", "user_id", req.UserID, "xp", req.XP, "reason", req.Reason,
			"admin_id", c.Locals(middleware.LocalUserID))

		return c.JSON(fiber.Map{
			"message":  "XP granted successfully",
			"user_id":  req.UserID,
			"xp":       req.XP,
			"total_xp": stats.TotalXP,
			"level_up": levelUp,
		})
	})
}

// fail maps engine errors onto HTTP statuses
func fail(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrStatsNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrNegativeXP):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientGems), errors.Is(err, services.ErrShieldLimitReached):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
