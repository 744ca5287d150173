package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"codearena/pkg/broker"
	"codearena/pkg/cache"
	"codearena/pkg/database"
	"codearena/pkg/handlers"
	"codearena/pkg/hub"
	"codearena/pkg/middleware"
	"codearena/pkg/ratelimit"
	"codearena/pkg/repository"
	"codearena/pkg/server"
	"codearena/pkg/services"
	"codearena/pkg/token"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	db := database.Connect()
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("[ARENA] migrations failed: %v", err)
	}

	log.Println("[ARENA] Connecting to Redis...")
	redis := cache.New()
	defer redis.Close()
	log.Println("[ARENA] Redis connected")

	issuer := token.NewIssuer(jwtSecret(), durationEnv("JWT_TTL", 15*time.Minute))
	refreshTTL := durationEnv("REFRESH_TTL", 7*24*time.Hour)

	authRepo := repository.NewAuthRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	contestRepo := repository.NewContestRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	xpRepo := repository.NewGamificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	submitLimiter := ratelimit.New(10, time.Minute)
	defer submitLimiter.Stop()

	eventBus := broker.New(redis.Client())
	defer eventBus.Close()

	judge := services.NewJudge()
	authSvc := services.NewAuthService(authRepo, xpRepo, issuer, refreshTTL)
	xpSvc := services.NewGamificationService(xpRepo)
	problemSvc := services.NewProblemService(problemRepo, redis)
	contestSvc := services.NewContestService(contestRepo, redis, eventBus)
	submissionSvc := services.NewSubmissionService(
		submissionRepo, problemRepo, contestRepo,
		judge, xpSvc, submitLimiter, eventBus, redis)
	userSvc := services.NewUserService(userRepo, redis)

	go sessionSweeper(authSvc)

	wsHub := hub.New()
	eventBus.OnAny(wsHub.Forward)
	eventBus.Subscribe()

	auth := handlers.NewAuth(authSvc)
	problems := handlers.NewProblems(problemSvc, judge)
	contests := handlers.NewContests(contestSvc)
	submissions := handlers.NewSubmissions(submissionSvc)
	xp := handlers.NewGamification(xpSvc)
	users := handlers.NewUsers(userSvc)

	app := server.NewApp("codearena")
	api := app.Group("/api")

	requireAuth := middleware.RequireAuth(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	requireAdmin := middleware.RequireAdmin()

	// ── Auth ──
	authGroup := api.Group("/auth")
	authGroup.Post("/register", perIPLimit(5), auth.Register)
	authGroup.Post("/login", perIPLimit(10), auth.Login)
	authGroup.Post("/refresh", auth.Refresh)
	authGroup.Post("/verify", auth.Verify)
	authGroup.Post("/logout", auth.Logout)

	authPriv := authGroup.Group("", requireAuth)
	authPriv.Get("/me", auth.Me)
	authPriv.Put("/me", auth.UpdateProfile)
	authPriv.Post("/change-password", auth.ChangePassword)
	authPriv.Post("/logout-all", auth.LogoutAll)
	authPriv.Get("/sessions", auth.Sessions)

	// ── Problems (public read, admin write) ──
	problemGroup := api.Group("/problems")
	problemGroup.Get("/", optionalAuth, problems.List)
	problemGroup.Get("/languages/supported", problems.Languages)
	problemGroup.Get("/:id", optionalAuth, problems.Get)
	problemGroup.Get("/:id/submissions", requireAuth, submissions.ForProblem)
	problemGroup.Post("/:id/submit", requireAuth, submissions.Submit)

	problemAdmin := problemGroup.Group("", requireAuth, requireAdmin)
	problemAdmin.Post("/", problems.Create)
	problemAdmin.Put("/:id", problems.Update)
	problemAdmin.Get("/:id/test-cases", problems.TestCases)
	problemAdmin.Post("/:id/test-cases", problems.AddTestCase)

	// ── Submissions ──
	subGroup := api.Group("/submissions", requireAuth)
	subGroup.Get("/mine", submissions.Mine)
	subGroup.Get("/:id", submissions.Get)

	// ── Contests ──
	contestGroup := api.Group("/contests")
	contestGroup.Get("/", contests.List)
	contestGroup.Get("/:id", contests.Get)
	contestGroup.Get("/:id/leaderboard", contests.Leaderboard)
	contestGroup.Get("/:id/participants", contests.Participants)

	contestPriv := contestGroup.Group("", requireAuth)
	contestPriv.Get("/:id/problems", contests.Problems)
	contestPriv.Post("/:id/register", contests.Register)
	contestPriv.Delete("/:id/register", contests.Unregister)

	contestAdmin := contestGroup.Group("", requireAuth, requireAdmin)
	contestAdmin.Post("/", contests.Create)
	contestAdmin.Put("/:id", contests.Update)
	contestAdmin.Post("/:id/problems", contests.AddProblem)
	contestAdmin.Delete("/:id/problems/:problemId", contests.RemoveProblem)

	// ── Users and leaderboards ──
	userGroup := api.Group("/users")
	userGroup.Get("/search", requireAuth, users.Search)
	userGroup.Get("/leaderboard", users.Leaderboard)
	userGroup.Get("/:username", auth.PublicProfile)

	// ── Gamification ──
	xpGroup := api.Group("/xp", requireAuth)
	xpGroup.Get("/me", xp.MyXP)
	xpGroup.Get("/history", xp.History)
	xpGroup.Get("/leaderboard", xp.Leaderboard)
	xpGroup.Get("/daily-challenge", xp.DailyChallenge)
	xpGroup.Post("/daily-challenge/:id/complete", xp.CompleteDailyChallenge)
	xpGroup.Get("/achievements", xp.Achievements)
	xpGroup.Get("/achievements/mine", xp.MyAchievements)

	groupGroup := api.Group("/study-groups", requireAuth)
	groupGroup.Get("/", xp.ListStudyGroups)
	groupGroup.Post("/", xp.CreateStudyGroup)
	groupGroup.Get("/:id", xp.GetStudyGroup)
	groupGroup.Post("/:id/join", xp.JoinStudyGroup)

	// ── Admin ──
	adminGroup := api.Group("/admin", requireAuth, requireAdmin)
	adminGroup.Get("/users", users.List)
	adminGroup.Put("/users/:id/admin", users.SetAdmin)
	adminGroup.Delete("/users/:id", users.Deactivate)
	adminGroup.Get("/stats", users.Stats)

	// Bootstrap route: promote the first admin with the shared key.
	api.Put("/bootstrap/users/:id/admin", middleware.RequireAdminKey(), users.SetAdmin)

	app.Get("/hub/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"clients":       wsHub.ClientCount(),
			"authenticated": wsHub.AuthenticatedCount(),
		})
	})

	app.Use("/ws", parseWSToken(issuer))
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(int)
		username, _ := c.Locals("username").(string)
		wsHub.HandleClientConn(c, userID, username)
	}))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := "0.0.0.0:" + port
	log.Printf("[ARENA] Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("[ARENA] Failed to start: %v", err)
	}
}

func perIPLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	})
}

// parseWSToken authenticates the websocket upgrade. A missing or bad token
// still connects as an anonymous spectator.
func parseWSToken(issuer *token.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		tokenStr := c.Query("token")
		if tokenStr == "" {
			if auth := c.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				tokenStr = auth[7:]
			}
		}

		if tokenStr != "" {
			if claims, err := issuer.Verify(tokenStr); err == nil {
				c.Locals("user_id", claims.UserID)
				c.Locals("username", claims.Username)
			}
		}
		return c.Next()
	}
}

func sessionSweeper(auth services.AuthService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		auth.SweepExpiredSessions()
	}
}

func jwtSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-key-change-in-production"
	}
	return secret
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
