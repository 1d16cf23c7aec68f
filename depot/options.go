package depot

import (
	"errors"

	"go.uber.org/zap"
)

// DefaultLowStockThreshold marks a category as low on the dashboard.
const DefaultLowStockThreshold = 50

// Options carries the ambient dependencies shared by every engine component.
type Options struct {
	Logger  *zap.Logger
	Metrics *Metrics
	Clock   Clock

	// Strict returns store read errors to the caller. When false, a failed
	// read contributes zero and the result is marked Degraded.
	Strict bool

	LowStockThreshold int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.LowStockThreshold <= 0 {
		o.LowStockThreshold = DefaultLowStockThreshold
	}
	return o
}

// degrade applies the read-failure policy. It returns err in strict mode;
// otherwise it logs, counts the failure and returns nil.
func (o Options) degrade(err error, msg string, fields ...zap.Field) error {
	if o.Strict {
		return err
	}
	var re *ReadError
	if errors.As(err, &re) {
		o.Metrics.readFailed(re.Table)
		fields = append(fields, zap.String("table", string(re.Table)))
	}
	o.Logger.Warn(msg, append(fields, zap.Error(err))...)
	return nil
}
