// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the planner routes on rg.
//
//	POST /solve
//	POST /validate
//	GET  /health
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/solve", h.HandleSolve)
	rg.POST("/validate", h.HandleValidate)
	rg.GET("/health", h.HandleHealth)
}

// NewRouter builds the planner HTTP server.
//
// Description:
//
//	Installs panic recovery and OpenTelemetry request tracing, mounts the
//	planner routes under /v1/plan, and serves metricsHandler at /metrics
//	when it is not nil.
func NewRouter(h *Handlers, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("paraspace"))

	RegisterRoutes(router.Group("/v1/plan"), h)

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
	return router
}
