package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/mohitkumar/eventflow/analytics"
	"github.com/mohitkumar/eventflow/config"
	"github.com/mohitkumar/eventflow/engine"
	"github.com/mohitkumar/eventflow/flow"
	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/mapping"
	"github.com/mohitkumar/eventflow/metadata"
	"github.com/mohitkumar/eventflow/metrics"
	"github.com/mohitkumar/eventflow/model"
	"github.com/mohitkumar/eventflow/resilience"
	"github.com/mohitkumar/eventflow/rest"
	"github.com/mohitkumar/eventflow/statemachine"
	"github.com/mohitkumar/eventflow/transport"
	"github.com/mohitkumar/eventflow/util"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	defaultTransportCapacity = 1024
	gaugeInterval            = time.Second
)

type Agent struct {
	Config       config.Config
	configReader mapping.ConfigReader
	tp           *transport.Memory
	flows        *flow.Registry
	executor     *engine.TaskExecutor
	collector    analytics.FlowDataCollector
	redisStore   *statemachine.RedisStore
	httpServer   *rest.Server
	gauge        *util.TickWorker
	shutdown     bool
	shutdownLock sync.Mutex
}

// New wires every component. configReader resolves map(config.key) constants
// in flow mappings and may be nil.
func New(conf config.Config, configReader mapping.ConfigReader) (*Agent, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		Config:       conf,
		configReader: configReader,
	}
	setup := []func() error{
		a.setupTransport,
		a.setupFlows,
		a.setupCollector,
		a.setupExecutor,
		a.setupResilience,
		a.setupStateMachine,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			a.tp.Stop()
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupTransport() error {
	capacity := a.Config.TransportCapacity
	if capacity <= 0 {
		capacity = defaultTransportCapacity
	}
	a.tp = transport.NewMemory(capacity)
	return nil
}

func (a *Agent) setupFlows() error {
	a.flows = flow.NewRegistry()
	flows, err := metadata.NewService(nil).LoadDir(a.Config.FlowsDir)
	if err != nil {
		return err
	}
	for _, f := range flows {
		a.flows.AddFlow(f)
	}
	logger.Info("flows loaded", zap.Int("count", len(flows)), zap.Strings("flows", a.flows.FlowIds()))
	return nil
}

func (a *Agent) setupCollector() error {
	var err error
	a.collector, err = analytics.NewDataCollector(a.Config.AnalyticsConfig)
	return err
}

func (a *Agent) setupExecutor() error {
	var resources afero.Fs
	if a.Config.ResourcesDir != "" {
		resources = afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), a.Config.ResourcesDir))
	}
	mapper := mapping.NewMapper(afero.NewOsFs(), resources, a.configReader)
	a.executor = engine.NewTaskExecutor(a.tp, a.flows, mapper, a.collector)
	if err := a.tp.RegisterInterceptor(model.TaskExecutorRoute, a.executor.HandleEvent, a.Config.ExecutorInstances); err != nil {
		return err
	}
	return a.tp.RegisterInterceptor(model.FlowManagerRoute, engine.NewFlowManager(a.executor).HandleEvent, a.Config.ExecutorInstances)
}

func (a *Agent) setupResilience() error {
	return a.tp.Register(resilience.ServiceName, resilience.NewHandler().HandleEvent, a.Config.ResilienceInstances)
}

func (a *Agent) setupStateMachine() error {
	conf := a.Config.StateMachine
	if conf.Route == "" {
		return nil
	}
	var store statemachine.Store
	switch conf.Type {
	case config.STATE_MACHINE_REDIS:
		a.redisStore = statemachine.NewRedisStore(statemachine.RedisConfig{
			Addrs:     conf.Redis.Addrs,
			Namespace: conf.Redis.Namespace,
			Password:  conf.Redis.Password,
			MaxRetry:  conf.Redis.MaxRetry,
		})
		store = a.redisStore
	default:
		store = statemachine.NewMemoryStore()
	}
	instances := conf.Instances
	if instances <= 0 {
		instances = 1
	}
	return a.tp.Register(conf.Route, statemachine.NewService(store), instances)
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.flows, a.tp)
	return err
}

// Transport exposes the event bus so that embedding programs can register
// their own task routes.
func (a *Agent) Transport() *transport.Memory {
	return a.tp
}

func (a *Agent) Flows() *flow.Registry {
	return a.flows
}

func (a *Agent) Start() error {
	a.gauge = util.NewTickWorker("instance-gauge", gaugeInterval, func() {
		metrics.ActiveInstances.Set(float64(a.flows.InstanceCount()))
	})
	a.gauge.Start()
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	logger.Info("shutting down server")

	shutdown := []func() error{
		func() error {
			if a.gauge != nil {
				a.gauge.Stop()
			}
			return nil
		},
		a.httpServer.Stop,
		func() error {
			a.tp.Stop()
			return nil
		},
		func() error {
			if a.redisStore == nil {
				return nil
			}
			return a.redisStore.Close()
		},
		func() error {
			if s, ok := a.collector.(interface{ Sync() error }); ok {
				return s.Sync()
			}
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
