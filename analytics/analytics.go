package analytics

import "time"

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// FlowDataCollector receives one record per finished flow instance.
type FlowDataCollector interface {
	RecordFlowCompleted(flowId string, instanceId string, tasks int, elapsed time.Duration)
	RecordFlowAborted(flowId string, instanceId string, status int, message string, tasks int, elapsed time.Duration)
}

func NewDataCollector(config DataCollectorConfig) (FlowDataCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	}
	return NoopDataCollector{}, nil
}

type NoopDataCollector struct{}

func (NoopDataCollector) RecordFlowCompleted(flowId string, instanceId string, tasks int, elapsed time.Duration) {
}

func (NoopDataCollector) RecordFlowAborted(flowId string, instanceId string, status int, message string, tasks int, elapsed time.Duration) {
}
