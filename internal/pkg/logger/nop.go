package logger

// NopLogger discards everything. Used by tests and one-off CLI tools that
// do not want log files.
type NopLogger struct{}

var _ ILogger = (*NopLogger)(nil)

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (l *NopLogger) Debug(module, message string, details map[string]interface{}) {}
func (l *NopLogger) Info(module, message string, details map[string]interface{})  {}
func (l *NopLogger) Warn(module, message string, details map[string]interface{})  {}
func (l *NopLogger) Error(module, message string, details map[string]interface{}) {}
func (l *NopLogger) Sync() error                                                  { return nil }
