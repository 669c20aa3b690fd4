package coap

import (
	"github.com/astaxie/beego/logs"
)

// Logger is the minimal surface the core needs from a logger; it is
// satisfied by *logs.BeeLogger, matching the teacher's use of
// github.com/astaxie/beego/logs (debug.go's GLog).
type Logger interface {
	Trace(format string, v ...interface{})
	Informational(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
}

var (
	debugEnable          bool
	healthMonitorEnable  bool
	// GLog is the package-level logger every component logs through.
	// Swap it with SetLogger to redirect diagnostics.
	GLog Logger
)

func init() {
	bee := logs.NewLogger(10000)
	bee.SetLogger("console", `{"level":7}`)
	bee.EnableFuncCallDepth(true)
	bee.SetLogFuncCallDepth(3)
	GLog = bee
}

// Debug toggles verbose trace logging (mirrors the teacher's Debug()).
func Debug(enable bool) {
	debugEnable = enable
}

// HealthMonitor toggles the "RUOK"/"IMOK" liveness probe short-circuit in
// the datagram engine's receive path (mirrors the teacher's
// HealthMonitor()).
func HealthMonitor(enable bool) {
	healthMonitorEnable = enable
}

// SetLogger installs a replacement logger; nil is ignored.
func SetLogger(l Logger) {
	if l != nil {
		GLog = l
	}
}

func traceInfo(format string, v ...interface{}) {
	if debugEnable {
		GLog.Informational(format, v...)
	}
}

func traceErr(format string, v ...interface{}) {
	GLog.Error(format, v...)
}
