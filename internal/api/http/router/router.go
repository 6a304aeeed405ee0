package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"

	"github.com/dtroode/flashcards-server/internal/api/http/handler"
	"github.com/dtroode/flashcards-server/internal/api/http/middleware"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// Services groups the services exposed over HTTP.
type Services struct {
	Auth       handler.AuthService
	Flashcards handler.FlashcardsService
	Catalog    handler.CatalogService
	Images     handler.ImagesService
	Practice   handler.PracticeService
}

// Router builds the echo application for the flashcards API.
type Router struct {
	services       Services
	tokenParser    middleware.TokenParser
	contextManager model.ContextManager
	allowedOrigins []string
	logger         *logger.Logger
}

// New creates a new Router.
func New(
	services Services,
	tokenParser middleware.TokenParser,
	contextManager model.ContextManager,
	allowedOrigins []string,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		tokenParser:    tokenParser,
		contextManager: contextManager,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Register sets up middleware and routes and returns the handler wrapped
// with CORS.
func (r *Router) Register() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	logging := middleware.NewLogging(r.logger)
	e.Use(echomw.Recover())
	e.Use(logging.Handle)

	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	authenticate := middleware.NewAuthenticate(r.tokenParser, r.contextManager, r.logger)
	api := e.Group("/api")
	private := api.Group("", authenticate.Handle)

	r.registerAuthRoutes(api, private)
	r.registerFlashcardRoutes(private)
	r.registerImageRoutes(private)
	r.registerPracticeRoutes(private)

	c := cors.New(cors.Options{
		AllowedOrigins: r.allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(e)
}

func (r *Router) registerAuthRoutes(public, private *echo.Group) {
	h := handler.NewAuth(r.services.Auth, r.contextManager, r.logger)

	auth := public.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/find-username", h.FindUsername)
	auth.POST("/reset-password", h.ResetPassword)
	auth.POST("/change-password", h.ChangePassword)

	private.DELETE("/account", h.DeleteAccount)
}

func (r *Router) registerFlashcardRoutes(g *echo.Group) {
	h := handler.NewFlashcards(r.services.Flashcards, r.services.Catalog, r.contextManager, r.logger)

	g.GET("/domains", h.ListDomains)
	g.POST("/domains", h.AddDomain)
	g.PATCH("/domains", h.RenameDomain)
	g.DELETE("/domains", h.DeleteDomain)

	g.GET("/topics", h.ListTopics)
	g.DELETE("/topics", h.DeleteTopic)
	g.GET("/catalog", h.Catalog)

	g.GET("/cards", h.GetCard)
	g.POST("/cards", h.AddCard)
	g.PUT("/cards", h.UpdateCard)
	g.DELETE("/cards", h.DeleteCard)
}

func (r *Router) registerImageRoutes(g *echo.Group) {
	h := handler.NewImages(r.services.Images, r.contextManager, r.logger)

	images := g.Group("/cards/images")
	images.GET("", h.List)
	images.POST("", h.Add)
	images.DELETE("", h.DeleteAll)
	images.PUT("/order", h.Reorder)
	images.GET("/content", h.Content)
	images.DELETE("/item", h.Delete)
}

func (r *Router) registerPracticeRoutes(g *echo.Group) {
	h := handler.NewPractice(r.services.Practice, r.contextManager, r.logger)

	study := g.Group("/study")
	study.POST("", h.StartStudy)
	study.GET("/:id", h.Study)
	study.POST("/:id/:action", h.StudyAction)
	study.DELETE("/:id", h.End)

	quiz := g.Group("/quiz")
	quiz.POST("", h.StartQuiz)
	quiz.GET("/:id", h.Quiz)
	quiz.POST("/:id/answer", h.SubmitAnswer)
	quiz.POST("/:id/grade", h.Grade)
	quiz.POST("/:id/hints/:hint", h.ToggleHint)
	quiz.POST("/:id/retry", h.RetryQuiz)
	quiz.POST("/:id/shuffle", h.ShuffleQuiz)
	quiz.DELETE("/:id", h.End)
}
