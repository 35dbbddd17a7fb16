package main

import (
	"context"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/google"
	infraRepo "app/internal/infra/repository"
	"app/internal/metrics"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	//.envは無くてもよい（本番は環境変数直接）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var log *zap.Logger
	if cfg.GoEnv == "prod" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.ProductMedia{},
		&model.Order{},
		&model.OrderItem{},
		&model.Customer{},
		&model.SavedPaymentMethod{},
		&model.Admin{},
	); err != nil {
		log.Fatal("failed to migrate", zap.Error(err))
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	customerRepo := infraRepo.NewCustomerGormRepository(gormDB)
	savedRepo := infraRepo.NewSavedPaymentMethodGormRepository(gormDB)
	adminRepo := infraRepo.NewAdminGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//ゲートウェイとGoogle検証
	gateway := mercadopago.NewClient(mercadopago.Config{
		AccessToken:      cfg.MercadoPagoAccessToken,
		WebhookSecret:    cfg.MercadoPagoWebhookSecret,
		RequireSignature: cfg.WebhookRequireSignature,
	})
	verifier := google.NewVerifier(cfg.GoogleClientID)

	//メトリクス
	reg := prometheus.NewRegistry()
	mset := metrics.New(reg)

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo)
	orderUC := usecase.NewOrderUsecase(txManager, mset)
	paymentUC := usecase.NewPaymentUsecase(txManager, orderRepo, customerRepo, savedRepo, orderUC, gateway, log, mset, cfg.BaseURL)
	webhookUC := usecase.NewWebhookUsecase(paymentUC, gateway, log, mset)
	authUC := usecase.NewAuthUsecase(adminRepo, customerRepo, verifier, log, cfg.JWTSecret, cfg.AdminGoogleEmails)
	customerUC := usecase.NewCustomerUsecase(customerRepo, savedRepo)

	//管理者seed
	if err := authUC.EnsureAdmins(context.Background(), cfg.AdminUsers); err != nil {
		log.Fatal("failed to seed admins", zap.Error(err))
	}

	//Handler生成
	handlers := server.Handlers{
		Auth:     handler.NewAuthHandler(authUC, customerUC, cfg.JWTSecret),
		Product:  handler.NewProductHandler(productUC, cfg.JWTSecret, cfg.UploadsDir),
		Order:    handler.NewOrderHandler(orderUC, cfg.JWTSecret),
		Payment:  handler.NewPaymentHandler(paymentUC, cfg.JWTSecret),
		Customer: handler.NewCustomerHandler(customerUC, cfg.JWTSecret),
		Webhook:  handler.NewWebhookHandler(webhookUC, gateway, log),
	}

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	log.Info("starting server", zap.String("addr", addr))
	if err := server.Start(addr, handlers, cfg.UploadsDir, reg); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
