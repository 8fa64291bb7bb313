package analytics

import (
	"os"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

var _ FlowDataCollector = new(LogFileDataCollector)

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	return newLogFileDataCollector(afero.NewOsFs(), fileName)
}

func newLogFileDataCollector(fs afero.Fs, fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := fs.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(fileEncoder, zapcore.AddSync(logFile), zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordFlowCompleted(flowId string, instanceId string, tasks int, elapsed time.Duration) {
	lc.logger.Info("completed", zap.String("flow", flowId), zap.String("instance", instanceId),
		zap.Int("tasks", tasks), zap.Int64("elapsedMs", elapsed.Milliseconds()))
}

func (lc *LogFileDataCollector) RecordFlowAborted(flowId string, instanceId string, status int, message string, tasks int, elapsed time.Duration) {
	lc.logger.Info("aborted", zap.String("flow", flowId), zap.String("instance", instanceId),
		zap.Int("status", status), zap.String("reason", message),
		zap.Int("tasks", tasks), zap.Int64("elapsedMs", elapsed.Milliseconds()))
}

func (lc *LogFileDataCollector) Sync() error {
	return lc.logger.Sync()
}
