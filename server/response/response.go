package response

import "github.com/gin-gonic/gin"

// JSON is the single response envelope used by all handlers.
func JSON(c *gin.Context, message string, status int, data interface{}, err interface{}) {
	responsedata := gin.H{
		"message": message,
		"data":    data,
		"errors":  err,
		"status":  status,
	}
	c.JSON(status, responsedata)
}
