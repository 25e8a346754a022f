package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	NotifyURL            string
	Token                string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	RecentLimit          int
	ConnectDelay         time.Duration
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
	PingInterval         time.Duration
	PongTimeout          time.Duration
	SideEffectQueue      int

	SSEHeartbeat time.Duration
	HistoryLimit int

	MySQLDSN            string
	RabbitMQURL         string
	RabbitExchange      string
	RabbitQueue         string
	RabbitRoutingKey    string
	RabbitConsumerTag   string
	RabbitPublishPrefix string

	KeyringService  string
	KeyringDir      string
	KeyringPassword string

	APIRateLimit float64
	APIRateBurst int

	OTELServiceName string
	OTLPEndpoint    string
	OTLPInsecure    bool
	OTELSampleRatio float64
}

func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:             ":8090",
		NotifyURL:            "ws://localhost:8000/ws/notifications",
		ReconnectDelay:       3000 * time.Millisecond,
		MaxReconnectAttempts: 5,
		RecentLimit:          20,
		ConnectDelay:         150 * time.Millisecond,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         5 * time.Second,
		PingInterval:         30 * time.Second,
		PongTimeout:          60 * time.Second,
		SideEffectQueue:      256,
		SSEHeartbeat:         15 * time.Second,
		HistoryLimit:         50,
		RabbitExchange:       "clinic.notifications",
		RabbitQueue:          "notifyd.commands",
		RabbitRoutingKey:     "command.*",
		RabbitConsumerTag:    "notifyd",
		RabbitPublishPrefix:  "notification",
		KeyringService:       "notifyd",
		KeyringDir:           defaultKeyringDir(),
		APIRateLimit:         5,
		APIRateBurst:         10,
		OTELServiceName:      "notifyd",
		OTLPInsecure:         true,
		OTELSampleRatio:      1,
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}

	if v := os.Getenv("NOTIFY_WS_URL"); v != "" {
		cfg.NotifyURL = v
	}
	cfg.Token = os.Getenv("NOTIFY_TOKEN")

	if d, ok := millis("RECONNECT_DELAY_MS"); ok {
		cfg.ReconnectDelay = d
	}
	if n, ok := nonNegativeInt("MAX_RECONNECT_ATTEMPTS"); ok {
		cfg.MaxReconnectAttempts = n
	}
	if n, ok := positiveInt("RECENT_LIMIT"); ok {
		cfg.RecentLimit = n
	}
	// Zero is allowed: connect as soon as the token is published.
	if v := os.Getenv("CONNECT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ConnectDelay = time.Duration(n) * time.Millisecond
		}
	}
	if n, ok := positiveInt("HANDSHAKE_TIMEOUT_SECONDS"); ok {
		cfg.HandshakeTimeout = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("WRITE_TIMEOUT_SECONDS"); ok {
		cfg.WriteTimeout = time.Duration(n) * time.Second
	}

	if n, ok := positiveInt("WS_PING_INTERVAL_SECONDS"); ok {
		cfg.PingInterval = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("WS_PONG_TIMEOUT_SECONDS"); ok {
		cfg.PongTimeout = time.Duration(n) * time.Second
	}
	// A ping must be able to arrive before the read deadline expires.
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 2 * cfg.PingInterval
	}
	if n, ok := positiveInt("SIDE_EFFECT_QUEUE"); ok {
		cfg.SideEffectQueue = n
	}

	if n, ok := positiveInt("SSE_HEARTBEAT_SECONDS"); ok {
		cfg.SSEHeartbeat = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("HISTORY_LIMIT"); ok {
		cfg.HistoryLimit = n
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")

	if v := os.Getenv("RABBITMQ_EXCHANGE"); v != "" {
		cfg.RabbitExchange = v
	}
	if v := os.Getenv("RABBITMQ_QUEUE"); v != "" {
		cfg.RabbitQueue = v
	}
	if v := os.Getenv("RABBITMQ_ROUTING_KEY"); v != "" {
		cfg.RabbitRoutingKey = v
	}
	if v := os.Getenv("RABBITMQ_CONSUMER_TAG"); v != "" {
		cfg.RabbitConsumerTag = v
	}
	if v := os.Getenv("RABBITMQ_PUBLISH_PREFIX"); v != "" {
		cfg.RabbitPublishPrefix = v
	}

	if v := os.Getenv("KEYRING_SERVICE"); v != "" {
		cfg.KeyringService = v
	}
	if v := os.Getenv("KEYRING_DIR"); v != "" {
		cfg.KeyringDir = v
	}
	cfg.KeyringPassword = os.Getenv("KEYRING_PASSWORD")

	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.APIRateLimit = f
		}
	}
	if n, ok := positiveInt("API_RATE_BURST"); ok {
		cfg.APIRateBurst = n
	}

	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.OTELServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OTLPInsecure = b
		}
	}

	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.OTELSampleRatio = f
		}
	}

	return cfg
}

func positiveInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func nonNegativeInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func millis(key string) (time.Duration, bool) {
	n, ok := positiveInt(key)
	if !ok {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}

func defaultKeyringDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "keyring")
	}
	return filepath.Join(home, ".config", "notifyd", "keyring")
}
