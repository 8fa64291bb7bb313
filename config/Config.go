package config

import (
	"fmt"

	"github.com/mohitkumar/eventflow/analytics"
)

type StateMachineType string

const STATE_MACHINE_MEMORY StateMachineType = "memory"
const STATE_MACHINE_REDIS StateMachineType = "redis"

type Config struct {
	HttpPort            int
	FlowsDir            string
	ResourcesDir        string
	ExecutorInstances   int
	ResilienceInstances int
	TransportCapacity   int
	StateMachine        StateMachineConfig
	LoggerConfig        LoggerConfig
	AnalyticsConfig     analytics.DataCollectorConfig
}

type StateMachineConfig struct {
	Type      StateMachineType
	Route     string
	Instances int
	Redis     RedisConfig
}

type RedisConfig struct {
	Addrs     []string
	Namespace string
	Password  string
	MaxRetry  uint64
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Validate checks the values the agent cannot start without.
func (c Config) Validate() error {
	if c.FlowsDir == "" {
		return fmt.Errorf("flows directory is required")
	}
	if c.ExecutorInstances <= 0 || c.ResilienceInstances <= 0 {
		return fmt.Errorf("executor and resilience instances must be positive")
	}
	switch c.StateMachine.Type {
	case STATE_MACHINE_MEMORY:
	case STATE_MACHINE_REDIS:
		if len(c.StateMachine.Redis.Addrs) == 0 {
			return fmt.Errorf("redis state machine needs at least one address")
		}
	default:
		return fmt.Errorf("unknown state machine type %s", c.StateMachine.Type)
	}
	return nil
}
