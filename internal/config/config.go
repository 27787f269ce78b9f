package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定。起動時に1回だけ読み、以後変更しない。
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5433）

	JWTSecret string // JWT署名シークレット

	// 管理者ログイン（ユーザー管理は対象外なので環境変数で1アカウントだけ持つ）
	AdminEmail        string
	AdminPasswordHash string // bcryptハッシュ

	// 決済ゲートウェイ
	GatewayPayURL    string // 決済ページのベースURL
	GatewayTmnCode   string // ゲートウェイ発行のマーチャントコード
	GatewaySecret    string // 署名用の共有シークレット
	GatewayReturnURL string // ブラウザ戻り先URL
	GatewayMode      string // sandbox / production

	// 価格ポリシー
	ShippingFee int64   // 一律送料
	TaxRate     float64 // 税率（0.0〜）

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	shippingFee, err := mustAtoi64("SHIPPING_FEE")
	if err != nil {
		return Config{}, err
	}

	taxRate := 0.0
	if v := os.Getenv("TAX_RATE"); v != "" {
		taxRate, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("TAX_RATE must be number: %w", err)
		}
	}
	if taxRate < 0 {
		return Config{}, fmt.Errorf("TAX_RATE must be >= 0")
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		GatewayPayURL:    os.Getenv("GATEWAY_PAY_URL"),
		GatewayTmnCode:   os.Getenv("GATEWAY_TMN_CODE"),
		GatewaySecret:    os.Getenv("GATEWAY_SECRET"),
		GatewayReturnURL: os.Getenv("GATEWAY_RETURN_URL"),
		GatewayMode:      os.Getenv("GATEWAY_MODE"),

		ShippingFee: shippingFee,
		TaxRate:     taxRate,

		GoEnv: os.Getenv("GO_ENV"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AdminEmail == "" {
		return Config{}, fmt.Errorf("ADMIN_EMAIL is required")
	}
	if cfg.AdminPasswordHash == "" {
		return Config{}, fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	if cfg.GatewayPayURL == "" {
		return Config{}, fmt.Errorf("GATEWAY_PAY_URL is required")
	}
	if cfg.GatewayTmnCode == "" {
		return Config{}, fmt.Errorf("GATEWAY_TMN_CODE is required")
	}
	if cfg.GatewaySecret == "" {
		return Config{}, fmt.Errorf("GATEWAY_SECRET is required")
	}
	if cfg.GatewayReturnURL == "" {
		return Config{}, fmt.Errorf("GATEWAY_RETURN_URL is required")
	}
	if cfg.GatewayMode != "sandbox" && cfg.GatewayMode != "production" {
		return Config{}, fmt.Errorf("GATEWAY_MODE must be sandbox or production")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func mustAtoi64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
