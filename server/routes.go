package server

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) SetupRoutes(authMiddleware, adminMiddleware, signupLimit, loginLimit echo.MiddlewareFunc) {
	e := s.Echo
	api := e.Group("/api/v1")
	// Auth routes (unprotected)
	auth := api.Group("/auth")
	{
		auth.GET("/providers", s.AuthHandler.GetProviders)
		auth.POST("/login", s.AuthHandler.Login, loginLimit)
		auth.POST("/refresh", s.AuthHandler.RefreshToken)
		auth.GET("/oauth/:provider", s.AuthHandler.OAuthLogin)
		auth.GET("/oauth/:provider/callback", s.AuthHandler.OAuthCallback)
	}
	api.POST("/signup", s.UserHandler.Signup, signupLimit)

	// 需要认证
	protected := api.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", s.UserHandler.Me)
		protected.GET("/ws", s.RealtimeHandler.HandleWebSocket)

		contacts := protected.Group("/contacts")
		{
			contacts.GET("", s.ContactHandler.Index)
			contacts.POST("", s.ContactHandler.Store)
			contacts.POST("/import", s.ContactHandler.Import) // 导入手机通讯录
			contacts.GET("/:id", s.ContactHandler.Show)
			contacts.PUT("/:id", s.ContactHandler.Update)
			contacts.DELETE("/:id", s.ContactHandler.Remove)
		}
		tickets := protected.Group("/tickets")
		{
			tickets.GET("", s.TicketHandler.Index)
			tickets.POST("", s.TicketHandler.Store)
			tickets.PUT("/:id", s.TicketHandler.Update)
			tickets.DELETE("/:id", s.TicketHandler.Remove)
			tickets.GET("/:id/orders", s.OrderHandler.ByTicket)
		}
		protected.POST("/orders", s.OrderHandler.Store)
		protected.PUT("/orders/:id/status", s.OrderHandler.UpdateStatus)
		protected.GET("/locations", s.OrderHandler.Locations)
		protected.POST("/locations", s.OrderHandler.StoreLocation)

		// 用户：列表和增删改需要管理员，查看自己由 service 判断
		users := protected.Group("/users")
		{
			users.GET("/online", s.UserHandler.Online)
			users.GET("/:id", s.UserHandler.Show)
			users.GET("", s.UserHandler.Index, adminMiddleware)
			users.POST("", s.UserHandler.Store, adminMiddleware)
			users.PUT("/:id", s.UserHandler.Update, adminMiddleware)
			users.DELETE("/:id", s.UserHandler.Remove, adminMiddleware)
		}
		protected.GET("/settings", s.SettingHandler.Index)
		protected.PUT("/settings/:key", s.SettingHandler.Update, adminMiddleware)
	}
}
