package main

import (
	"log"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/gateway"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/metrics"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type bcryptVerifier struct{}

func (v *bcryptVerifier) Verify(plain string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	//.envは無ければ無いでよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("[main] db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("[main] migrate: %v", err)
	}

	//Repository（GORM実装）生成
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	verifier := &bcryptVerifier{}
	issuer := &jwtIssuer{secret: []byte(cfg.JWTSecret), accessTTL: 15 * time.Minute}

	//ゲートウェイアダプタ（署名とURL組み立てだけ。I/Oなし）
	adapter := gateway.NewAdapter(gateway.Config{
		PayURL:    cfg.GatewayPayURL,
		TmnCode:   cfg.GatewayTmnCode,
		Secret:    cfg.GatewaySecret,
		ReturnURL: cfg.GatewayReturnURL,
	})
	if cfg.GatewayMode == "sandbox" {
		log.Printf("[main] gateway in sandbox mode: %s", cfg.GatewayPayURL)
	}

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(
		txManager,
		validator.NewCheckoutValidator(),
		adapter,
		idGen,
		clock,
		cfg.ShippingFee,
		cfg.TaxRate,
	)
	orderUC := usecase.NewOrderUsecase(orderRepo, txManager)
	ipnUC := usecase.NewIPNUsecase(orderRepo, adapter, clock)
	returnUC := usecase.NewReturnUsecase(adapter, orderRepo)
	fulfillmentUC := usecase.NewFulfillmentUsecase(txManager, auditRepo, clock)
	loginUC := usecase.NewAdminAuthUsecase(cfg.AdminEmail, cfg.AdminPasswordHash, verifier, issuer, clock)

	//Handler生成
	orderH := handler.NewOrderHandler(checkoutUC, orderUC)
	paymentH := handler.NewPaymentHandler(ipnUC, returnUC)
	adminH := handler.NewAdminOrderHandler(fulfillmentUC)
	authH := handler.NewAuthHandler(loginUC)

	//メトリクス登録
	metrics.Register()

	//Server起動
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	orderH.RegisterRoutes(e)
	paymentH.RegisterRoutes(e)
	adminH.RegisterRoutes(e, cfg)
	authH.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	addr := ":" + cfg.Port
	if err := e.Start(addr); err != nil {
		log.Fatalf("[main] server: %v", err)
	}
}
