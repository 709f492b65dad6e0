package driver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"cyborg-vpn/internal/platform/config"
	"cyborg-vpn/internal/platform/logger"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// 未設定時的連線逾時
const defaultConnectTimeout = 10 * time.Second

// Mongo 共用限流計數使用的 MongoDB 連線
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo 連接 MongoDB 並確認可用.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	timeout := seconds(cfg.ConnectTimeout, defaultConnectTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 從環境變量讀取認證信息，配置文件優先
	username := os.Getenv("MONGO_USERNAME")
	password := os.Getenv("MONGO_PASSWORD")
	if cfg.Username != "" {
		username = cfg.Username
	}
	if cfg.Password != "" {
		password = cfg.Password
	}

	clientOptions := options.Client().ApplyURI(cfg.URL)

	if username != "" && password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: username,
			Password: password,
		})
	}

	if cfg.TLSEnabled {
		tlsConfig, err := loadMongoTLSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load MongoDB TLS config: %w", err)
		}
		clientOptions.SetTLSConfig(tlsConfig)
	}

	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	clientOptions.SetMinPoolSize(cfg.MinPoolSize)
	if cfg.MaxConnIdleTime > 0 {
		clientOptions.SetMaxConnIdleTime(time.Duration(cfg.MaxConnIdleTime) * time.Second)
	}
	if cfg.ServerSelectionTimeout > 0 {
		clientOptions.SetServerSelectionTimeout(time.Duration(cfg.ServerSelectionTimeout) * time.Second)
	}

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info(ctx, "MongoDB connected",
		logger.WithAction("connect_mongo"),
		logger.WithDetails(map[string]interface{}{
			"database": cfg.Database,
			"auth":     username != "",
			"tls":      cfg.TLSEnabled,
		}))

	return &Mongo{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

// Ping 健康檢查用
func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

// Close 關閉 MongoDB 連接.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// loadMongoTLSConfig 載入 MongoDB TLS 配置
func loadMongoTLSConfig(ctx context.Context, cfg config.MongoConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	// 如果設置了跳過驗證（僅開發環境）
	if cfg.TLSInsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
		logger.Warning(ctx, "MongoDB TLS 證書驗證已跳過（僅開發環境）")
		return tlsConfig, nil
	}

	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
			return nil, fmt.Errorf("failed to append CA certs")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		clientCert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	return tlsConfig, nil
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
