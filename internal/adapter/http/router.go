package http

import (
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/http/middleware"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *CheckoutHandler, th *TokenHandler, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	v1 := r.Group("/v1")
	{
		v1.GET("/checkout/methods/available", h.ListMethods)

		v1.POST("/checkout/initiate", authz.Require("checkout.write"), h.Initiate)
		v1.GET("/checkout/:sessionId", authz.Require("checkout.read"), h.GetSession)
		v1.GET("/checkout/:sessionId/status", authz.Require("checkout.read"), h.GetStatus)
		v1.POST("/checkout/:sessionId/validate", authz.Require("checkout.write"), h.Validate)
		v1.POST("/checkout/:sessionId/pay", authz.Require("checkout.write"), h.Pay)
		v1.POST("/checkout/:sessionId/complete", authz.Require("checkout.write"), h.Complete)
		v1.DELETE("/checkout/:sessionId", authz.Require("checkout.write"), h.Cancel)
	}

	return r
}
