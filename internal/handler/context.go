package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CustomerIDKey is the gin context key the session middleware stores the
// authenticated customer id under.
const CustomerIDKey = "customer_id"

func customerID(c *gin.Context) (string, bool) {
	id := c.GetString(CustomerIDKey)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return id, true
}
