package handlers

import "github.com/labstack/echo/v4"

// API bundles the handler groups mounted under /v1
type API struct {
	Catalog    *CatalogHandlers
	Allocation *AllocationHandlers
	Stock      *StockHandlers
	PickLists  *PickListHandlers
	Returns    *ReturnHandlers
	Receipts   *ReceiptHandlers
	Alerts     *AlertHandlers
	Reports    *ReportHandlers
}

func (a *API) Register(g *echo.Group) {
	g.POST("/products", a.Catalog.CreateProduct)
	g.GET("/products", a.Catalog.ListProducts)
	g.GET("/products/:id", a.Catalog.GetProduct)
	g.GET("/products/:id/stock", a.Catalog.ProductStock)
	g.GET("/products/:id/movements", a.Catalog.ProductMovements)

	g.POST("/locations", a.Catalog.CreateLocation)
	g.GET("/locations", a.Catalog.ListLocations)
	g.GET("/locations/:id", a.Catalog.GetLocation)
	g.PATCH("/locations/:id", a.Catalog.UpdateLocation)
	g.GET("/locations/:id/stock", a.Catalog.LocationStock)

	g.POST("/orders", a.Catalog.CreateOrder)
	g.GET("/orders/:id", a.Catalog.GetOrder)
	g.POST("/orders/:id/pick-list", a.PickLists.GeneratePickList)

	allocations := g.Group("/allocations")
	allocations.POST("", a.Allocation.PlaceIncoming)
	allocations.POST("/specific", a.Allocation.PlaceSpecific)
	allocations.POST("/suggest", a.Allocation.Suggest)
	allocations.POST("/batch", a.Allocation.Batch)
	allocations.POST("/withdrawal-plan", a.Allocation.WithdrawalPlan)

	g.POST("/stock/adjust", a.Stock.AdjustStock)
	g.POST("/stock/transfer", a.Stock.TransferStock)
	g.GET("/movements", a.Stock.ListMovements)
	g.GET("/movements/daily", a.Stock.DailySummary)

	pickLists := g.Group("/pick-lists")
	pickLists.POST("/batch", a.PickLists.GenerateBatch)
	pickLists.GET("", a.PickLists.ListPickLists)
	pickLists.GET("/:id", a.PickLists.GetPickList)
	pickLists.GET("/:id/path", a.PickLists.PickingPath)
	pickLists.GET("/:id/progress", a.PickLists.Progress)
	pickLists.POST("/:id/start", a.PickLists.Start)
	pickLists.POST("/:id/complete", a.PickLists.Complete)
	pickLists.POST("/:id/cancel", a.PickLists.Cancel)
	pickLists.POST("/:id/items/:itemId/scan", a.PickLists.ScanItem)
	pickLists.POST("/:id/items/:itemId/pick-remaining", a.PickLists.PickRemaining)
	pickLists.POST("/:id/quick-scan", a.PickLists.QuickScan)

	returns := g.Group("/returns")
	returns.POST("", a.Returns.CreateReturn)
	returns.GET("", a.Returns.ListReturns)
	returns.GET("/:id", a.Returns.GetReturn)
	returns.POST("/:id/items", a.Returns.AddItem)
	returns.PATCH("/:id/items/:itemId", a.Returns.InspectItem)
	returns.POST("/:id/inspect", a.Returns.StartInspection)
	returns.POST("/:id/complete", a.Returns.Complete)
	returns.POST("/:id/reject", a.Returns.Reject)

	receipts := g.Group("/receipts")
	receipts.POST("", a.Receipts.CreateReceipt)
	receipts.GET("", a.Receipts.ListReceipts)
	receipts.GET("/stats", a.Receipts.Stats)
	receipts.GET("/pending", a.Receipts.ListPending)
	receipts.GET("/in-progress", a.Receipts.ListInProgress)
	receipts.GET("/:id", a.Receipts.GetReceipt)
	receipts.POST("/:id/items", a.Receipts.AddItem)
	receipts.POST("/:id/start", a.Receipts.Start)
	receipts.POST("/:id/items/:itemId/scan", a.Receipts.ScanItem)
	receipts.POST("/:id/complete", a.Receipts.Complete)
	receipts.POST("/:id/cancel", a.Receipts.Cancel)

	alerts := g.Group("/alerts")
	alerts.POST("/sweep", a.Alerts.Sweep)
	alerts.GET("", a.Alerts.ListAlerts)
	alerts.GET("/summary", a.Alerts.Summary)
	alerts.POST("/:id/acknowledge", a.Alerts.Acknowledge)
	alerts.POST("/:id/resolve", a.Alerts.Resolve)

	g.POST("/reports/movements", a.Reports.ExportMovements)
}
