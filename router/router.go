package router

import (
	"tender-agent-backend/controller"
	"tender-agent-backend/middleware"

	"github.com/gin-gonic/gin"
)

func Register() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		public := api.Group("/auth")
		{
			public.POST("/login", controller.CompanyLogin)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/project", controller.CreateProject)
			protected.GET("/projects", controller.GetProjects)
			protected.GET("/project/:id", controller.GetProject)
			protected.POST("/project/:id/document", controller.UploadTenderDocument)

			protected.POST("/project/:id/step1/prepare", controller.PrepareStep1)
			protected.POST("/project/:id/step1/confirm", controller.ConfirmStep1)
			protected.POST("/project/:id/step2/prepare", controller.PrepareStep2)
			protected.POST("/project/:id/step2/review", controller.ReviewStep2)
			protected.POST("/project/:id/step3/prepare", controller.PrepareStep3)
			protected.GET("/project/:id/requirements", controller.GetRequirements)
			protected.PUT("/project/:id/requirement", controller.EditRequirement)
			protected.PUT("/project/:id/basic-info", controller.SaveBasicInfo)
			protected.POST("/project/:id/step3/complete", controller.CompleteStep3)

			protected.POST("/outline", controller.GenerateOutline)
			protected.POST("/proposal", controller.GenerateProposal)
			protected.POST("/proposal/stream", controller.StreamProposal)

			protected.POST("/check-task", controller.CreateCheckTask)
			protected.GET("/check-task/:id", controller.GetCheckTask)
			protected.GET("/check-tasks", controller.GetCheckTasks)

			protected.POST("/document", controller.UploadCompanyDocument)
			protected.GET("/document/:docId", controller.GetDocument)

			protected.POST("/capability/tags/init", controller.InitCapabilityTags)
			protected.POST("/capability/tag", controller.CreateCapabilityTag)
			protected.GET("/capability/tags", controller.GetCapabilityTags)
			protected.DELETE("/capability/tag/:code", controller.DeactivateCapabilityTag)
			protected.POST("/capability/extract/:docId", controller.ExtractCapabilities)
			protected.POST("/capability/search", controller.SearchCapabilities)
			protected.POST("/project/:id/capability/match", controller.MatchRequirements)

			protected.POST("/search", controller.SemanticSearch)
			protected.GET("/search/similar/:id", controller.SimilarDocuments)
		}
	}

	return r
}
