package routes

import (
	"github.com/gin-gonic/gin"

	"fuel-dispatch-server/database"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/websocket"
)

// RegisterWebSocketRoutes registers the realtime connection endpoint
func RegisterWebSocketRoutes(router *gin.RouterGroup) {
	router.GET("/ws", middleware.WebSocketAuthMiddleware(), handleWebSocket)
}

// handleWebSocket upgrades the connection and registers the client on the
// hub. Workers carry their role so dispatch broadcasts can target them.
func handleWebSocket(c *gin.Context) {
	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	workerRole := ""
	if user.Role == models.RoleWorker {
		var worker models.Worker
		if err := database.DB.Where("user_id = ?", user.ID).First(&worker).Error; err == nil {
			workerRole = string(worker.Role)
		}
	}

	websocket.ServeWebSocket(hub, c.Writer, c.Request, user.ID, string(user.Role), workerRole)
}
