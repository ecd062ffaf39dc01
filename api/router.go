package api

import (
	"net/http"

	"github.com/fyerfyer/gherkin-gen/api/handler"
	"github.com/fyerfyer/gherkin-gen/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	docHandler *handler.DocumentHandler,
	genHandler *handler.GenerationHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(Cors())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestLogger())
	}

	api := router.Group("/api")
	{
		docGroup := api.Group("/documents")
		{
			// 上传需求文档 - POST /api/documents
			docGroup.POST("", docHandler.UploadDocument)

			// 获取文档列表 - GET /api/documents
			docGroup.GET("", docHandler.ListDocuments)

			// 获取文档信息 - GET /api/documents/:id
			docGroup.GET("/:id", docHandler.GetDocument)

			// 删除文档 - DELETE /api/documents/:id
			docGroup.DELETE("/:id", docHandler.DeleteDocument)

			// 文档的生成任务 - GET /api/documents/:id/generations
			docGroup.GET("/:id/generations", genHandler.ListGenerations)
		}

		genGroup := api.Group("/generations")
		{
			// 创建生成任务 - POST /api/generations
			genGroup.POST("", genHandler.CreateGeneration)

			// 查询生成任务 - GET /api/generations/:id
			genGroup.GET("/:id", genHandler.GetGeneration)

			// 下载产物 - GET /api/generations/:id/artifacts/:kind
			genGroup.GET("/:id/artifacts/:kind", genHandler.DownloadArtifact)
		}

		// 可追溯性图 - POST /api/traceability
		api.POST("/traceability", genHandler.Traceability)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Trace-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
