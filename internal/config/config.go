package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）

	JWTSecret string // JWT署名シークレット

	BaseURL string // Webhook通知URLの組み立てに使う（空なら通知URLなし）

	MercadoPagoAccessToken   string // ゲートウェイAPIトークン
	MercadoPagoWebhookSecret string // Webhook署名シークレット
	WebhookRequireSignature  bool   // デフォルトtrue。falseで原本のfail-open挙動

	GoogleClientID    string   // Google OAuthクライアントID
	AdminGoogleEmails []string // 管理者扱いするGoogleメール（小文字）
	AdminUsers        string   // 起動時にseedする管理者（user:pass,...）

	UploadsDir string // メディア保存先

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		BaseURL: strings.TrimRight(os.Getenv("BASE_URL"), "/"),

		MercadoPagoAccessToken:   os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
		MercadoPagoWebhookSecret: os.Getenv("MERCADOPAGO_WEBHOOK_SECRET"),
		WebhookRequireSignature:  parseBoolDefault(os.Getenv("WEBHOOK_REQUIRE_SIGNATURE"), true),

		GoogleClientID:    os.Getenv("GOOGLE_CLIENT_ID"),
		AdminGoogleEmails: parseEmailList(os.Getenv("ADMIN_GOOGLE_EMAILS")),
		AdminUsers:        os.Getenv("ADMIN_USERS"),

		UploadsDir: os.Getenv("UPLOADS_DIR"),

		GoEnv: os.Getenv("GO_ENV"),
	}

	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads"
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
	if cfg.MercadoPagoAccessToken == "" {
		return Config{}, fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required")
	}
	if cfg.GoogleClientID == "" {
		return Config{}, fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}

	// 署名必須なのにシークレットがない構成は起動時に落とす
	if cfg.WebhookRequireSignature && cfg.MercadoPagoWebhookSecret == "" {
		return Config{}, fmt.Errorf("MERCADOPAGO_WEBHOOK_SECRET is required unless WEBHOOK_REQUIRE_SIGNATURE=false")
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

func parseBoolDefault(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseEmailList(raw string) []string {
	var emails []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}
