package routes

import (
	"clipcast/api/handlers"
	"clipcast/api/middleware"
	"clipcast/services"

	"github.com/gin-gonic/gin"
)

// Services собирает зависимости для маршрутизации. Все хендлы создаются
// в main и передаются сюда явно.
type Services struct {
	Accounts   *services.AccountService
	Content    *services.ContentService
	Feed       *services.FeedService
	Engagement *services.EngagementService
	Notify     *services.NotifyService
	Comments   *services.CommentService
	WS         *services.WSConnManager
}

func PublicApi(router *gin.Engine, svcs *Services) {
	authHandler := handlers.NewAuthHandler(svcs.Accounts, svcs.Content)
	feedHandler := handlers.NewFeedHandler(svcs.Feed)
	engagementHandler := handlers.NewEngagementHandler(svcs.Engagement)
	notificationHandler := handlers.NewNotificationHandler(svcs.Notify)
	commentHandler := handlers.NewCommentHandler(svcs.Comments)
	wsHandler := handlers.NewWSHandler(svcs.WS)

	public := router.Group("/api/v1/")
	{
		public.POST("auth/register", authHandler.Register)
		public.POST("auth/login", authHandler.Login)
	}

	authed := router.Group("/api/v1/", middleware.AuthMiddleware(svcs.Accounts))
	{
		authed.POST("auth/logout", authHandler.Logout)

		authed.GET("feed", feedHandler.GetFeed)
		authed.GET("content/:content_id", feedHandler.GetOneContent)
		authed.POST("content", authHandler.Publish)

		authed.POST("content/:content_id/spotlight", engagementHandler.Spotlight)
		authed.POST("content/:content_id/play", engagementHandler.Play)

		authed.POST("content/:content_id/comments", commentHandler.Create)
		authed.GET("content/:content_id/comments", commentHandler.List)

		authed.GET("notifications", notificationHandler.List)
		authed.POST("notifications/:notification_id/read", notificationHandler.MarkRead)
		authed.GET("notifications/unread", notificationHandler.UnreadCount)

		authed.POST("blocks", authHandler.Block)
		authed.DELETE("blocks", authHandler.Unblock)

		authed.GET("ws/notifications", wsHandler.Notifications)
	}
}
