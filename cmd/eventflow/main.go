package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohitkumar/eventflow/agent"
	"github.com/mohitkumar/eventflow/analytics"
	"github.com/mohitkumar/eventflow/config"
	"github.com/mohitkumar/eventflow/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("flows-dir", "flows", "directory holding flow definitions")
	cmd.Flags().String("resources-dir", "resources", "directory served to classpath() mappings")
	cmd.Flags().Int("executor-instances", 200, "task executor instances")
	cmd.Flags().Int("resilience-instances", 50, "resilience handler instances")
	cmd.Flags().Int("transport-capacity", 1024, "pending events per route")
	cmd.Flags().String("state-machine", "memory", "implementation of external state machine storage")
	cmd.Flags().String("state-machine-route", "v1.state.machine", "route of the external state machine, empty to disable")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "eventflow", "namespace used in storage")
	cmd.Flags().String("analytics-file", "", "file receiving flow records, empty to disable")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("log-encoding", "json", "log encoding, json or console")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return err
		}
	}

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.FlowsDir = viper.GetString("flows-dir")
	c.cfg.ResourcesDir = viper.GetString("resources-dir")
	c.cfg.ExecutorInstances = viper.GetInt("executor-instances")
	c.cfg.ResilienceInstances = viper.GetInt("resilience-instances")
	c.cfg.TransportCapacity = viper.GetInt("transport-capacity")
	c.cfg.StateMachine.Type = config.StateMachineType(viper.GetString("state-machine"))
	c.cfg.StateMachine.Route = viper.GetString("state-machine-route")
	c.cfg.StateMachine.Redis.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.StateMachine.Redis.Namespace = viper.GetString("namespace")
	c.cfg.LoggerConfig.Level = viper.GetString("log-level")
	c.cfg.LoggerConfig.Encoding = viper.GetString("log-encoding")
	if file := viper.GetString("analytics-file"); file != "" {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{
			FileName:      file,
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
		}
	}
	return logger.Init(c.cfg.LoggerConfig.Level, c.cfg.LoggerConfig.Encoding)
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	agent, err := agent.New(c.cfg.Config, viper.GetViper())
	if err != nil {
		return err
	}
	if err = agent.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "eventflow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
