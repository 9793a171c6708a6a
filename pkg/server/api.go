package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/config"
	handlers "github.com/snapstyle/snapstyle-backend/pkg/handlers/http"
	"github.com/snapstyle/snapstyle-backend/pkg/middleware"
)

type (
	ApiServerDI struct {
		MiddlewareTransport middleware.Transport
		HandlerTransport    handlers.HandlerTransport
		Config              *config.Config
		Logger              *logrus.Logger
	}
	ApiServer struct {
		*BaseServer
		middlewareTransport middleware.Transport
		handlerTransport    handlers.HandlerTransport
	}
)

func NewApiServer(di ApiServerDI) *ApiServer {
	return &ApiServer{
		BaseServer:          NewBaseServer(di.Config, di.Logger),
		middlewareTransport: di.MiddlewareTransport,
		handlerTransport:    di.HandlerTransport,
	}
}

func (s *ApiServer) Run() error {
	s.setupLatencyMetrics()
	s.setupMiddleware()
	s.setupHealthCheck()
	s.setupRoutes()
	s.setupMetricsEndpoint()

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("Starting api server")
	return s.Router.Listen(addr)
}

func (s *ApiServer) setupMiddleware() {
	// Recovery first, then the ingress gate, then response headers.
	s.Router.Use(s.middlewareTransport.PanicRecoverMiddleware.Middleware())
	s.Router.Use(s.middlewareTransport.RateLimiterMiddleware.Middleware())
	s.Router.Use(s.middlewareTransport.SecurityMiddleware.Middleware())
}

func (s *ApiServer) setupRoutes() {
	api := s.Router.Group("/api")
	{
		search := api.Group("/search")
		{
			search.Post("/text", s.handlerTransport.TextSearchHandler.Handle)
			search.Post("/image", s.handlerTransport.ImageSearchHandler.Handle)
		}

		recommendations := api.Group("/recommendations")
		{
			recommendations.Post("/sections", s.handlerTransport.SectionsHandler.Handle)
			recommendations.Post("", s.handlerTransport.RecommendationsHandler.Handle)
			recommendations.Delete("/:user_id", s.handlerTransport.InvalidateUserHandler.Handle)
		}

		api.Get("/quota", s.handlerTransport.QuotaStatusHandler.Handle)
	}
}

func (s *ApiServer) Shutdown() error {
	return s.Router.Shutdown()
}
