package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	coap "github.com/giterlab/go-coap-core"
)

// recorderResource answers GET/PUT on a single "/recorder/<name>" path,
// storing one float64 reading and its unit string (SPEC_FULL.md section
// 3, "recorder resource").
type recorderResource struct {
	name string

	mu    sync.Mutex
	value float64
	unit  string
	set   bool
}

// statsResource exposes the server's running counters as JSON at
// "/stats" (SPEC_FULL.md section 3, "stats resource" - grounded on
// soscoap's stats_resource.py, which serves the same counters to the
// reference stats_reader.py client).
type statsResource struct {
	server *coap.Server
}

func (r *statsResource) Path() string { return "/stats" }

func (r *statsResource) OnGet(xfer *coap.ResourceTransfer) {
	body, err := json.Marshal(r.server.Stats())
	if err != nil {
		xfer.ResultClass = coap.ClassServerError
		xfer.ResultCode = coap.InternalServerError
		return
	}
	xfer.Type = "json"
	xfer.ContentFormat = coap.AppJSON
	xfer.HasContentFormat = true
	xfer.Value = body
}

func (r *recorderResource) Path() string { return "/recorder/" + r.name }

func (r *recorderResource) OnGet(xfer *coap.ResourceTransfer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		xfer.ResultClass = coap.ClassClientError
		xfer.ResultCode = coap.NotFound
		return
	}
	xfer.Type = "string"
	xfer.Value = strconv.FormatFloat(r.value, 'f', -1, 64) + "," + r.unit
}

func (r *recorderResource) OnPut(xfer *coap.ResourceTransfer) {
	var s string
	switch v := xfer.Value.(type) {
	case string:
		s = v
	case []byte: // payload sent without a Content-Format
		s = string(v)
	default:
		xfer.ResultClass = coap.ClassClientError
		xfer.ResultCode = coap.BadRequest
		return
	}
	value, unit, ok := splitReading(s)
	if !ok {
		xfer.ResultClass = coap.ClassClientError
		xfer.ResultCode = coap.BadRequest
		return
	}
	r.mu.Lock()
	r.value, r.unit, r.set = value, unit, true
	r.mu.Unlock()
}

// splitReading parses the "<float>,<unit>" wire format used by the
// original recorder fixtures (spec.md section 8 scenario 3: "2014,125").
func splitReading(s string) (float64, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			v, err := strconv.ParseFloat(s[:i], 64)
			if err != nil {
				return 0, "", false
			}
			return v, s[i+1:], true
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "", false
	}
	return v, "", true
}

func main() {
	configPath := flag.String("config", "", "path to a YAML coap.Config")
	name := flag.String("name", "outside", "recorder resource name")
	logPath := flag.String("log", "recorder.log", "log file path")
	flag.Parse()

	logger := newLogger(*logPath)
	defer logger.Sync()

	cfg := coap.DefaultConfig()
	if *configPath != "" {
		loaded, err := coap.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
		cfg = loaded
	}
	cfg.Apply()

	server, err := coap.NewServer(cfg.LocalPort, cfg.EngineOptions()...)
	if err != nil {
		logger.Fatal("start server", zap.Error(err))
	}
	server.RegisterResource(&recorderResource{name: *name})
	server.RegisterResource(&statsResource{server: server})
	server.Start()
	defer server.Close()

	logger.Info("recorder listening", zap.Stringer("addr", server.LocalAddr()), zap.String("resource", "/recorder/"+*name))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}

func newLogger(path string) *zap.Logger {
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	})
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, writer, zap.InfoLevel)
	return zap.New(core)
}
