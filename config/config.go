package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/lendhub/lending-service/internal/service"
	"github.com/lendhub/lending-service/pkg/kafka"
	"github.com/lendhub/lending-service/pkg/logger"
	"github.com/lendhub/lending-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"HTTP_HOST"`
	Port         string        `yaml:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ"`
	WriteTimeout time.Duration
}

type Sweep struct {
	Cron    string        `yaml:"cron" envconfig:"SWEEP_CRON" default:"0 0 3 * * *"`
	Timeout time.Duration `yaml:"timeout" envconfig:"SWEEP_TIMEOUT" default:"5m"`
	Enable  bool          `yaml:"enable" envconfig:"SWEEP_ENABLE" default:"true"`
}

type Config struct {
	Server   HTTPServer      `yaml:"server"`
	Database postgres.Config `yaml:"database"`
	Kafka    kafka.Config
	Policy   service.Policy
	Sweep    Sweep      `yaml:"sweep"`
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
