package kafka

import (
	"github.com/IBM/sarama"
)

const (
	LendingEventsTopic = "lending.events"
)

type Config struct {
	Addrs  []string `envconfig:"KAFKA_ADDRS" default:"localhost:9092"`
	Enable bool     `envconfig:"KAFKA_ENABLE" default:"false"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}
