package logger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"backtest-engine/pkg/common"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Alerter delivers a formatted alert message, e.g. to a Telegram chat.
type Alerter interface {
	SendAlert(ctx context.Context, message string) error
}

// AlertCore forwards entries flagged with send_alert to an Alerter.
type AlertCore struct {
	alerter  Alerter
	core     zapcore.Core
	minLevel zapcore.Level
	timeout  time.Duration
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		alerter:  a.alerter,
		core:     a.core.With(fields),
		minLevel: a.minLevel,
		timeout:  a.timeout,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= a.minLevel && shouldAlert(fields) {
		go a.sendAlert(entry, fields) // async so logging never blocks on the network
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func shouldAlert(fields []zapcore.Field) bool {
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			return true
		}
	}
	return false
}

func (a *AlertCore) sendAlert(entry zapcore.Entry, fields []zapcore.Field) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	_ = a.alerter.SendAlert(ctx, FormatAlert(entry, fields))
}

// FormatAlert renders an entry and its fields as a Markdown message.
func FormatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT {
			continue
		}
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("• %s: %v\n", k, enc.Fields[k]))
	}

	return fmt.Sprintf(
		"🚨 *%s Alert*\n\n*Message:* %s\n\n*Fields:*\n%s\n*Time:* %s",
		entry.Level.CapitalString(),
		entry.Message,
		sb.String(),
		entry.Time.Format("2006-01-02 15:04:05"),
	)
}

// WithAlerts returns a logger that also sends flagged entries at or above
// minLevel to alerter.
func (l *Logger) WithAlerts(alerter Alerter, minLevel zapcore.Level) *Logger {
	if alerter == nil {
		return l
	}
	return &Logger{l.Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &AlertCore{
			alerter:  alerter,
			core:     core,
			minLevel: minLevel,
			timeout:  10 * time.Second,
		}
	}))}
}
