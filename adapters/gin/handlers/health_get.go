package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HandleHealthGET is the unauthenticated liveness check.
func HandleHealthGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{
			Status:  "healthy",
			Service: "entrakit",
		})
	}
}
