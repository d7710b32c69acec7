package config

import (
	_ "embed"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"coinfolio/internal/db"
	"coinfolio/internal/util"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configByte []byte

const encPrefix = "enc:"

type Config struct {
	Log string `yaml:"log"`
	App struct {
		Port        int    `yaml:"port"`
		JwtKey      string `yaml:"jwtkey"`
		TokenTTL    string `yaml:"tokenTTL"`
		AdminAuth   bool   `yaml:"adminAuth"`
		CorsOrigins string `yaml:"corsOrigins"`
	} `yaml:"app"`

	Db struct {
		Driver   string `yaml:"driver"`
		Uri      string `yaml:"uri"`
		Name     string `yaml:"name"`
		Timeout  string `yaml:"timeout"`
		User     string `yaml:"user"`
		Password string `yaml:"pwd"`
		IP       string `yaml:"ip"`
		Port     string `yaml:"port"`
		Scheme   string `yaml:"scheme"`
	} `yaml:"db"`
}

// NewConfig reads the embedded config.yaml, then lets .env and the process
// environment override it.
func NewConfig() (*Config, error) {
	return load(configByte, ".env")
}

func load(raw []byte, envFiles ...string) (*Config, error) {

	var ConfigInfo Config = Config{}

	err := yaml.Unmarshal(raw, &ConfigInfo)
	if err != nil {
		return nil, err
	}

	// a missing .env is fine; values then come from the environment only
	_ = godotenv.Load(envFiles...)
	override(&ConfigInfo)

	if err := decode(&ConfigInfo); err != nil {
		return nil, err
	}

	if ConfigInfo.App.JwtKey == "" {
		return nil, errors.New("jwt secret is not configured")
	}

	return &ConfigInfo, nil
}

func (c Config) LogLevel() (zerolog.Level, error) {

	level, err := zerolog.ParseLevel(c.Log)
	if err != nil {
		return zerolog.InfoLevel, err // Default로는 Info 레벨 설정
	}

	return level, nil
}

func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.App.Port)
}

// TokenTTL falls back to 7 days when unset or malformed.
func (c Config) TokenTTL() time.Duration {
	return duration(c.App.TokenTTL, 7*24*time.Hour)
}

func (c Config) DbTimeout() time.Duration {
	return duration(c.Db.Timeout, 10*time.Second)
}

func (c Config) MongoConfig() *db.MongoConfig {
	return db.NewMongoConfig(c.Db.Uri, c.Db.Name, c.DbTimeout())
}

func (c Config) MysqlConfig() *db.MysqlConfig {
	return db.NewMysqlConfig(c.Db.User, c.Db.Password, c.Db.IP, c.Db.Port, c.Db.Scheme)
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

var envKeys = []struct {
	key string
	set func(c *Config, v string)
}{
	{"PORT", func(c *Config, v string) {
		if p, err := strconv.Atoi(v); err == nil {
			c.App.Port = p
		}
	}},
	{"JWT_SECRET", func(c *Config, v string) { c.App.JwtKey = v }},
	{"JWT_TTL", func(c *Config, v string) { c.App.TokenTTL = v }},
	{"ADMIN_AUTH", func(c *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.App.AdminAuth = b
		}
	}},
	{"CORS_ORIGINS", func(c *Config, v string) { c.App.CorsOrigins = v }},
	{"LOG_LEVEL", func(c *Config, v string) { c.Log = v }},
	{"DB_DRIVER", func(c *Config, v string) { c.Db.Driver = v }},
	{"MONGODB_URI", func(c *Config, v string) { c.Db.Uri = v }},
	{"DB_NAME", func(c *Config, v string) { c.Db.Name = v }},
	{"MYSQL_USER", func(c *Config, v string) { c.Db.User = v }},
	{"MYSQL_PASSWORD", func(c *Config, v string) { c.Db.Password = v }},
	{"MYSQL_HOST", func(c *Config, v string) { c.Db.IP = v }},
	{"MYSQL_PORT", func(c *Config, v string) { c.Db.Port = v }},
	{"MYSQL_DATABASE", func(c *Config, v string) { c.Db.Scheme = v }},
}

func override(conf *Config) {
	for _, e := range envKeys {
		if v, ok := os.LookupEnv(e.key); ok && v != "" {
			e.set(conf, v)
		}
	}
}

/*
memo.
secret 값은 평문, "b64:" base64, "enc:" AES 암호문 중 하나로 둘 수 있다.
"enc:" 값의 복호화 키는 CONFIG_KEY 환경변수로만 전달한다.
*/
func decode(conf *Config) error {

	secrets := []*string{&conf.App.JwtKey, &conf.Db.Uri, &conf.Db.Password}

	for _, s := range secrets {
		if err := util.Decode(s); err != nil {
			return err
		}
		if !strings.HasPrefix(*s, encPrefix) {
			continue
		}
		key := os.Getenv("CONFIG_KEY")
		if key == "" {
			return errors.New("CONFIG_KEY is required for encrypted config values")
		}
		plain, err := util.Decrypt([]byte(key), strings.TrimPrefix(*s, encPrefix))
		if err != nil {
			return err
		}
		*s = plain
	}
	return nil
}
