// Package config loads the service configuration: YAML file, IM_-prefixed
// environment overrides, and hot reload of the log level on file change.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	DB            DBConfig            `mapstructure:"db"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RPC           RPCConfig           `mapstructure:"rpc"`
	Websocket     WebsocketConfig     `mapstructure:"websocket"`
	ServiceCenter ServiceCenterConfig `mapstructure:"service_center"`
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	MongoDB       MongoDBConfig       `mapstructure:"mongodb"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

// TelemetryConfig points at an OTLP collector; empty means no span export.
type TelemetryConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type DBConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	MongoDB  MongoConfig    `mapstructure:"mongodb"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// DSN renders a pgx-compatible connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		p.User, p.Password, p.Host, p.Port, p.Database)
}

type MongoConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

func (m MongoConfig) URI() string {
	if m.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", m.User, m.Password, m.Host, m.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", m.Host, m.Port)
}

// MongoDBConfig holds the inbox janitor settings.
type MongoDBConfig struct {
	Clean CleanConfig `mapstructure:"clean"`
}

type CleanConfig struct {
	// Period is the retention window in days.
	Period int `mapstructure:"period"`
	// ExceptTypes lists msg_type values the janitor never deletes.
	ExceptTypes []int32 `mapstructure:"except_types"`
}

type KafkaConfig struct {
	Hosts          []string            `mapstructure:"hosts"`
	Topic          string              `mapstructure:"topic"`
	Group          string              `mapstructure:"group"`
	ConnectTimeout time.Duration       `mapstructure:"connect_timeout"`
	Producer       KafkaProducerConfig `mapstructure:"producer"`
	Consumer       KafkaConsumerConfig `mapstructure:"consumer"`
}

type KafkaProducerConfig struct {
	// Timeout bounds a single record delivery.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetry is the broker-side retry budget per record.
	MaxRetry int `mapstructure:"max_retry"`
}

type KafkaConsumerConfig struct {
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	// InitialOffset is "newest" or "oldest" for a fresh consumer group.
	InitialOffset string `mapstructure:"initial_offset"`
}

type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// SeqStep is the distance between persisted-max checkpoints of the
	// sequence counters.
	SeqStep int64 `mapstructure:"seq_step"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RPCConfig names every gRPC endpoint the fleet exposes.
type RPCConfig struct {
	Chat   RPCEndpoint `mapstructure:"chat"`
	DB     RPCEndpoint `mapstructure:"db"`
	WS     RPCEndpoint `mapstructure:"ws"`
	Pusher RPCEndpoint `mapstructure:"pusher"`
}

type RPCEndpoint struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	Name            string   `mapstructure:"name"`
	Tags            []string `mapstructure:"tags"`
	Protocol        string   `mapstructure:"protocol"`
	GRPCHealthCheck bool     `mapstructure:"grpc_health_check"`
}

func (e RPCEndpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

type WebsocketConfig struct {
	Host string   `mapstructure:"host"`
	Port int      `mapstructure:"port"`
	Name string   `mapstructure:"name"`
	Tags []string `mapstructure:"tags"`
}

func (w WebsocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

type ServiceCenterConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Protocol string        `mapstructure:"protocol"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (s ServiceCenterConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type ServerConfig struct {
	JwtSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	// Level is debug | info | warn | error.
	Level string `mapstructure:"level"`
	// Output is "console" or a file path; "json" switches the handler format.
	Output string `mapstructure:"output"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads the configuration file (path, or IM_CONFIG_FILE, or
// ./config.yaml) and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("IM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = v.GetString("config_file")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/im-chat-service")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
		// Defaults plus env is a valid configuration for local runs.
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}

// Watch re-reads the file on change and invokes fn with the fresh config.
// Only hot-reloadable settings (log level) should be taken from it.
func Watch(path string, fn func(*Config)) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg := new(Config)
		if err := v.Unmarshal(cfg); err != nil {
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.postgres.host", "127.0.0.1")
	v.SetDefault("db.postgres.port", 5432)
	v.SetDefault("db.postgres.user", "postgres")
	v.SetDefault("db.postgres.database", "im_chat")
	v.SetDefault("db.mongodb.host", "127.0.0.1")
	v.SetDefault("db.mongodb.port", 27017)
	v.SetDefault("db.mongodb.database", "im_chat")
	v.SetDefault("db.mongodb.collection", "single_msg_box")

	v.SetDefault("kafka.hosts", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic", "im-chat-messages")
	v.SetDefault("kafka.group", "im-chat-consumer")
	v.SetDefault("kafka.connect_timeout", "5s")
	v.SetDefault("kafka.producer.timeout", "3s")
	v.SetDefault("kafka.producer.max_retry", 3)
	v.SetDefault("kafka.consumer.session_timeout", "10s")
	v.SetDefault("kafka.consumer.initial_offset", "oldest")

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.seq_step", 100)

	v.SetDefault("rpc.chat.name", "chat")
	v.SetDefault("rpc.chat.host", "127.0.0.1")
	v.SetDefault("rpc.chat.port", 50001)
	v.SetDefault("rpc.chat.grpc_health_check", true)
	v.SetDefault("rpc.db.name", "db")
	v.SetDefault("rpc.db.host", "127.0.0.1")
	v.SetDefault("rpc.db.port", 50002)
	v.SetDefault("rpc.db.grpc_health_check", true)
	v.SetDefault("rpc.ws.name", "msg-gateway")
	v.SetDefault("rpc.ws.host", "127.0.0.1")
	v.SetDefault("rpc.ws.port", 50003)
	v.SetDefault("rpc.ws.grpc_health_check", true)
	v.SetDefault("rpc.pusher.name", "pusher")
	v.SetDefault("rpc.pusher.host", "127.0.0.1")
	v.SetDefault("rpc.pusher.port", 50004)
	v.SetDefault("rpc.pusher.grpc_health_check", true)

	v.SetDefault("websocket.host", "0.0.0.0")
	v.SetDefault("websocket.port", 8080)
	v.SetDefault("websocket.name", "websocket")

	v.SetDefault("service_center.host", "127.0.0.1")
	v.SetDefault("service_center.port", 8500)
	v.SetDefault("service_center.protocol", "consul")
	v.SetDefault("service_center.timeout", "5s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.format", "text")

	v.SetDefault("telemetry.endpoint", "")

	v.SetDefault("mongodb.clean.period", 30)
	v.SetDefault("mongodb.clean.except_types", []int32{})
}
