package middleware

import (
	"net/http"

	"github.com/TIANLI0/LeafScan/config"
	"github.com/TIANLI0/LeafScan/service"
	"github.com/gin-gonic/gin"
)

const (
	SessionKey    = "session_id"
	ControllerKey = "controller"
)

// Session 根据 cookie 找到会话的 Controller，没有则新建并写回 cookie
func Session(cfg *config.SessionConfig, store *service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(cfg.CookieName)

		controller, newID := store.Get(id)
		if newID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, newID, 0, "/", "", false, true)
		}

		c.Set(SessionKey, newID)
		c.Set(ControllerKey, controller)
		c.Next()
	}
}

// Controller 取出当前会话的 Controller
func Controller(c *gin.Context) *service.Controller {
	return c.MustGet(ControllerKey).(*service.Controller)
}
