package api

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")

	api.GET("/system/status", s.systemStatus)
	api.GET("/system/tasks", s.listTasks)
	api.POST("/system/tasks/:id/run", s.runTask)
	api.POST("/system/prowlarr/test", s.testProwlarr)
	api.PUT("/system/qbittorrent", s.configureQbit)
	api.POST("/system/qbittorrent/test", s.testQbit)

	api.GET("/games", s.listGames)
	api.POST("/games", s.createGame)
	api.GET("/games/lookup", s.lookupGames)
	api.GET("/games/:id", s.getGame)
	api.PATCH("/games/:id", s.updateGame)
	api.DELETE("/games/:id", s.deleteGame)
	api.GET("/games/:id/search", s.searchGame)
	api.POST("/games/:id/grab", s.grabGame)
	api.GET("/games/:id/updates", s.listGameUpdates)
	api.POST("/games/:id/updates/check", s.checkGameUpdates)

	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.updateSettings)

	api.GET("/downloads", s.listDownloads)
	api.DELETE("/downloads/:hash", s.cancelDownload)
	api.POST("/downloads/:hash/pause", s.pauseDownload)
	api.POST("/downloads/:hash/resume", s.resumeDownload)
	api.GET("/downloads/history", s.downloadHistory)
	api.POST("/downloads/orphans/cleanup", s.cleanupOrphans)

	api.GET("/updates", s.listPendingUpdates)
	api.POST("/updates/:id/dismiss", s.dismissUpdate)
	api.POST("/updates/sweep", s.runUpdateSweep)

	api.GET("/libraries", s.listLibraries)
	api.POST("/libraries", s.createLibrary)
	api.DELETE("/libraries/:id", s.deleteLibrary)
	api.GET("/library/files", s.scanLibrary)
	api.POST("/library/scan", s.scanLibrary)
	api.POST("/library/refresh", s.refreshLibrary)
	api.GET("/library/duplicates", s.findDuplicates)
}
