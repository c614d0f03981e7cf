package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Events   EventsConfig   `mapstructure:"events"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Business BusinessConfig `mapstructure:"business"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// 登录接口每分钟允许的请求数（按 IP）
	LoginRateLimit int `mapstructure:"login_rate_limit"`
	// 雪花 ID 节点号，多副本部署时每个实例必须不同
	NodeID int64 `mapstructure:"node_id"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | postgres | sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	DSN          string `mapstructure:"dsn"` // 非空时直接使用，sqlite 为文件路径
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"` // silent | error | warn | info
}

type RedisConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// AdminConfig 启动时自动创建的管理员账号
type AdminConfig struct {
	LoginName string `mapstructure:"login_name"`
	Password  string `mapstructure:"password"`
}

type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Broker  string `mapstructure:"broker"` // kafka | amqp
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents string `mapstructure:"ledger_events"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type BusinessConfig struct {
	MaxRetryCount            int    `mapstructure:"max_retry_count"`
	ReconcileIntervalMinutes int    `mapstructure:"reconcile_interval_minutes"`
	BackfillOnStart          bool   `mapstructure:"backfill_on_start"`
	Timezone                 string `mapstructure:"timezone"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// LoadConfig 加载配置文件，环境变量 PUJA_<SECTION>_<KEY> 可覆盖文件中的值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PUJA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时仅使用默认值和环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.login_rate_limit", 10)
	v.SetDefault("server.node_id", 1)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "puja_ledger")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl_seconds", 60)

	// 无默认值的键也要注册，AutomaticEnv 才能在 Unmarshal 时生效
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "puja-ledger")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("admin.login_name", "admin")
	v.SetDefault("admin.password", "")

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.broker", "kafka")
	v.SetDefault("kafka.topic.ledger_events", "puja.ledger.events")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "puja.ledger")

	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.reconcile_interval_minutes", 60)
	v.SetDefault("business.backfill_on_start", false)
	v.SetDefault("business.timezone", "Asia/Kolkata")

	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate 校验配置项
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("database.driver 不支持: %q", c.Database.Driver))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port 非法: %d", c.Server.Port))
	}

	if c.Server.NodeID < 0 || c.Server.NodeID > 1023 {
		problems = append(problems, fmt.Sprintf("server.node_id 非法: %d", c.Server.NodeID))
	}

	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret 不能为空")
	}

	if c.Events.Enabled {
		switch c.Events.Broker {
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				problems = append(problems, "kafka.brokers 不能为空")
			}
		case "amqp":
			if c.AMQP.URL == "" {
				problems = append(problems, "amqp.url 不能为空")
			}
		default:
			problems = append(problems, fmt.Sprintf("events.broker 不支持: %q", c.Events.Broker))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("配置校验失败: %s", strings.Join(problems, "; "))
	}
	return nil
}
