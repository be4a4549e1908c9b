package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"winmore.backend/internal/interfaces/http/handlers"
	"winmore.backend/internal/interfaces/http/middleware"
	"winmore.backend/pkg/metrics"
)

type routeDeps struct {
	walletHandler    *handlers.WalletHandler
	dreamMineHandler *handlers.DreamMineHandler
	plinkoHandler    *handlers.PlinkoHandler
	chainHandler     *handlers.ChainHandler
	authMiddleware   gin.HandlerFunc
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, Idempotency-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Chain routes (public)
		chains := v1.Group("/chains")
		{
			chains.GET("", d.chainHandler.ListChains)
		}

		// Wallet routes (protected)
		wallet := v1.Group("/wallet")
		wallet.Use(d.authMiddleware)
		{
			wallet.GET("", d.walletHandler.GetWallet)
			wallet.GET("/transactions", d.walletHandler.GetTransactions)
			wallet.POST("/withdraw", middleware.IdempotencyMiddleware(), d.walletHandler.Withdraw)
		}

		// Dream-mine routes (rules public, play protected)
		dreamMine := v1.Group("/dream-mine")
		{
			dreamMine.GET("/rules", d.dreamMineHandler.GetRules)

			play := dreamMine.Group("")
			play.Use(d.authMiddleware)
			{
				play.POST("/new", middleware.IdempotencyMiddleware(), d.dreamMineHandler.NewGame)
				play.POST("/mine", d.dreamMineHandler.Mine)
				play.POST("/backoff", d.dreamMineHandler.BackOff)
				play.GET("/games", d.dreamMineHandler.ListGames)
				play.GET("/games/:id", d.dreamMineHandler.GetGame)
			}
		}

		// Plinko routes (rules and board public, play protected)
		plinko := v1.Group("/plinko")
		{
			plinko.GET("/rules", d.plinkoHandler.GetRules)
			plinko.GET("/board", d.plinkoHandler.GetBoard)

			play := plinko.Group("")
			play.Use(d.authMiddleware)
			{
				play.POST("/new", middleware.IdempotencyMiddleware(), d.plinkoHandler.NewGame)
				play.POST("/drop", d.plinkoHandler.Drop)
				play.GET("/games", d.plinkoHandler.ListGames)
				play.GET("/games/:id", d.plinkoHandler.GetGame)
				play.GET("/ongoing", d.plinkoHandler.GetOngoing)
			}
		}
	}
}
