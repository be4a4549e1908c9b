package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"winmore.backend/internal/config"
	"winmore.backend/internal/infrastructure/blockchain"
	"winmore.backend/internal/infrastructure/jobs"
	"winmore.backend/internal/infrastructure/repositories"
	"winmore.backend/internal/interfaces/http/handlers"
	"winmore.backend/internal/interfaces/http/middleware"
	"winmore.backend/internal/usecases"
	"winmore.backend/pkg/crypto"
	"winmore.backend/pkg/jwt"
	"winmore.backend/pkg/logger"
	"winmore.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Initialize Redis
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	dsn := cfg.Database.URL()
	db, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database not available: %w", err)
	}
	log.Println("✅ Connected to PostgreSQL via GORM")

	// Initialize JWT service
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	trxRepo := repositories.NewTransactionRepository(db)
	chainRepo := repositories.NewChainRepository(db)
	contractRepo := repositories.NewContractRepository(db)
	blockRepo := repositories.NewBlockRepository(db)
	dreamMineRepo := repositories.NewDreamMineRepository(db)
	plinkoRepo := repositories.NewPlinkoRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Initialize blockchain client factory
	clientFactory := blockchain.NewClientFactory()
	defer clientFactory.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the ledger and pin the custodial treasury wallet. The
	// signing key is sealed in the environment; a wrong passphrase stops
	// the boot here, before anything can move money.
	ledgerUsecase := usecases.NewLedgerUsecase(trxRepo, walletRepo, userRepo, uow)
	treasuryKey, err := crypto.DecryptSecret(cfg.Treasury.EncryptedPrivateKey, cfg.Treasury.Passphrase)
	if err != nil {
		return fmt.Errorf("failed to unseal treasury key: %w", err)
	}
	if err := ledgerUsecase.LoadBusinessWallet(ctx, treasuryKey); err != nil {
		return fmt.Errorf("failed to load business wallet: %w", err)
	}
	logger.Info(ctx, "Business wallet loaded")

	// Initialize usecases
	scannerUsecase := usecases.NewScannerUsecase(chainRepo, contractRepo, blockRepo, walletRepo, ledgerUsecase, uow, clientFactory)
	if err := scannerUsecase.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize scanner: %w", err)
	}
	withdrawalUsecase := usecases.NewWithdrawalUsecase(
		ledgerUsecase, blockRepo, chainRepo, contractRepo, walletRepo, uow, clientFactory,
		cfg.Treasury.ReceiptPollInterval, cfg.Treasury.ReceiptPollTimeout,
	)
	dreamMineUsecase := usecases.NewDreamMineUsecase(dreamMineRepo, ledgerUsecase, uow, nil)
	plinkoUsecase := usecases.NewPlinkoUsecase(plinkoRepo, ledgerUsecase, uow, nil, cfg.Games.PlinkoSearchTimeout)

	// Initialize handlers
	walletHandler := handlers.NewWalletHandler(ledgerUsecase, withdrawalUsecase)
	dreamMineHandler := handlers.NewDreamMineHandler(dreamMineUsecase)
	plinkoHandler := handlers.NewPlinkoHandler(plinkoUsecase)
	chainHandler := handlers.NewChainHandler(chainRepo)

	// Start background jobs
	scannerJob := jobs.NewChainScannerJob(scannerUsecase, cfg.Scanner.Interval)
	scannerJob.Start(ctx)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		walletHandler:    walletHandler,
		dreamMineHandler: dreamMineHandler,
		plinkoHandler:    plinkoHandler,
		chainHandler:     chainHandler,
		authMiddleware:   middleware.AuthMiddleware(jwtService),
	})

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		scannerJob.Stop()
		// drain in-flight withdrawal receipt waits before exiting so no
		// hold is left PENDING by the shutdown itself
		withdrawalUsecase.Wait()
		cancel()
	}()

	// Start server
	log.Printf("🚀 WinMore Backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/v1", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
