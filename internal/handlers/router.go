package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-billing-pos/internal/auth"
	"go-billing-pos/internal/logger"
	"go-billing-pos/internal/middleware"
)

// NewRouter wires every route. Reads and saves are open to any signed-in user; catalog edits,
// deletes, exports, reconcile re-runs and the assistant need the admin role.
func NewRouter(d Deps, log *zap.Logger) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}
	h := New(d)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(logger.GinMiddleware(log))
	r.Use(logger.Recovery(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)
	r.POST("/login", h.Login)

	// --- FEATURE FLAG: Registration ---
	if d.AllowRegistration {
		r.POST("/register", h.Register)
		log.Warn("Registration route is OPEN. Disable this in production!")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(d.Issuer))
	{
		// STAFF & ADMIN
		api.GET("/bills", h.GetRecentBills)
		api.GET("/bills/all", h.GetAllBills)
		api.GET("/bills/find/:billNo", h.FindBill)
		api.GET("/bills/next-number", h.NextBillNo)
		api.POST("/bills/save", h.SaveBill)
		api.PUT("/bills/update/:billNo", h.UpdateBill)
		api.GET("/bills/stats", h.GetStats)
		api.POST("/bills/custom-stats", h.GetCustomStats)
		api.POST("/bills/product-stats", h.GetProductStats)

		api.GET("/returns", h.GetRecentReturns)
		api.GET("/returns/all", h.GetAllReturns)
		api.GET("/returns/check/:billNo", h.CheckReturn)
		api.GET("/returns/next-number/:billNo", h.NextReturnID)
		api.POST("/returns/save", h.SaveReturn)
		api.PUT("/returns/update/:returnId", h.UpdateReturn)

		api.GET("/updated", h.GetRecentUpdatedBills)
		api.GET("/updated/all", h.GetAllUpdatedBills)
		api.GET("/updated/find/:billNo", h.FindUpdatedBill)
		api.GET("/updated/failures", h.GetReconcileFailures)

		api.GET("/products", h.GetProducts)
		api.GET("/products/search", h.SearchItems)
		api.GET("/products/valuation", h.GetStockValuation)
		// the bill screen pushes typed rates back into the catalog
		api.PUT("/products/bulk-update", h.BulkUpdatePrices)

		// ADMIN ONLY
		admin := api.Group("")
		admin.Use(middleware.RequireRole(auth.RoleAdmin))
		{
			admin.DELETE("/bills/delete/:billNo", h.DeleteBill)
			admin.DELETE("/returns/delete/:returnId", h.DeleteReturn)
			admin.GET("/bills/export", h.ExportBills)
			admin.POST("/updated/reconcile/:billNo", h.RetryReconcile)

			admin.POST("/products", h.CreateCategory)
			admin.POST("/products/item/add", h.AddItem)
			admin.PUT("/products/item/update", h.UpdateItem)

			admin.POST("/ask", h.AskAI)
		}
	}

	return r, nil
}

func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		logger.FromGin(c).Error("Database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "online", "database": "up"})
}
