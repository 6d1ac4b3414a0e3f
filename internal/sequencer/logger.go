package sequencer

import "go.uber.org/zap"

// Logger is the structured logging subset used by the Engine and Processor.
// *logger.Logger and *zap.SugaredLogger satisfy it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

func orNop(l Logger) Logger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
