package telemetry

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// Profile type names accepted in ProfilerConfig.ProfileTypes
const (
	ProfileCPU           = "cpu"
	ProfileAllocObjects  = "alloc_objects"
	ProfileAllocSpace    = "alloc_space"
	ProfileInuseObjects  = "inuse_objects"
	ProfileInuseSpace    = "inuse_space"
	ProfileGoroutines    = "goroutines"
	ProfileMutexCount    = "mutex_count"
	ProfileMutexDuration = "mutex_duration"
	ProfileBlockCount    = "block_count"
	ProfileBlockDuration = "block_duration"
)

var pyroscopeProfileTypes = map[string]pyroscope.ProfileType{
	ProfileCPU:           pyroscope.ProfileCPU,
	ProfileAllocObjects:  pyroscope.ProfileAllocObjects,
	ProfileAllocSpace:    pyroscope.ProfileAllocSpace,
	ProfileInuseObjects:  pyroscope.ProfileInuseObjects,
	ProfileInuseSpace:    pyroscope.ProfileInuseSpace,
	ProfileGoroutines:    pyroscope.ProfileGoroutines,
	ProfileMutexCount:    pyroscope.ProfileMutexCount,
	ProfileMutexDuration: pyroscope.ProfileMutexDuration,
	ProfileBlockCount:    pyroscope.ProfileBlockCount,
	ProfileBlockDuration: pyroscope.ProfileBlockDuration,
}

// DefaultProfileTypes are collected when ProfilerConfig.ProfileTypes is empty.
// Mutex duration shows time spent waiting on in-process order locks.
func DefaultProfileTypes() []string {
	return []string{
		ProfileCPU,
		ProfileAllocSpace,
		ProfileInuseSpace,
		ProfileGoroutines,
		ProfileMutexDuration,
	}
}

// ProfilerConfig holds Pyroscope continuous profiling configuration.
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string // e.g. "http://pyroscope:4040"
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string

	MutexProfileFraction int // default 5
	BlockProfileRate     int // default 5
}

// Profiler wraps the Pyroscope profiler with lifecycle management.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	config   ProfilerConfig
	mu       sync.Mutex
	stopped  bool
}

// NewProfiler creates and starts a Pyroscope profiler.
// If profiling is disabled, it returns a no-op profiler.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{
		logger: logger,
		config: cfg,
	}

	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled, using no-op profiler")
		return p, nil
	}

	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("profiler server address is required when profiling is enabled")
	}
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler application name is required when profiling is enabled")
	}

	profileTypes, err := buildProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}
	configureRuntimeProfiling(cfg, logger)

	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}
	if podName := os.Getenv("POD_NAME"); podName != "" {
		tags["pod"] = podName
	}

	pyroscopeCfg := pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          newPyroscopeLogger(logger),
		Tags:            tags,
		ProfileTypes:    profileTypes,
	}
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPassword != "" {
		pyroscopeCfg.BasicAuthUser = cfg.BasicAuthUser
		pyroscopeCfg.BasicAuthPassword = cfg.BasicAuthPassword
	}

	profiler, err := pyroscope.Start(pyroscopeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.profiler = profiler

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(profileTypes)),
	)
	return p, nil
}

// buildProfileTypes maps configured names to Pyroscope profile types
func buildProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	if len(names) == 0 {
		names = DefaultProfileTypes()
	}
	types := make([]pyroscope.ProfileType, 0, len(names))
	for _, name := range names {
		t, ok := pyroscopeProfileTypes[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
		types = append(types, t)
	}
	return types, nil
}

func configureRuntimeProfiling(cfg ProfilerConfig, logger *zap.Logger) {
	var mutex, block bool
	for _, name := range cfg.ProfileTypes {
		switch name {
		case ProfileMutexCount, ProfileMutexDuration:
			mutex = true
		case ProfileBlockCount, ProfileBlockDuration:
			block = true
		}
	}
	if len(cfg.ProfileTypes) == 0 {
		mutex = true
	}

	if mutex {
		fraction := cfg.MutexProfileFraction
		if fraction <= 0 {
			fraction = 5
		}
		runtime.SetMutexProfileFraction(fraction)
		logger.Debug("Mutex profiling enabled", zap.Int("fraction", fraction))
	}
	if block {
		rate := cfg.BlockProfileRate
		if rate <= 0 {
			rate = 5
		}
		runtime.SetBlockProfileRate(rate)
		logger.Debug("Block profiling enabled", zap.Int("rate", rate))
	}
}

// Stop flushes pending profiles and stops the profiler.
// It is safe to call Stop multiple times.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	if p.profiler == nil {
		return nil
	}

	p.logger.Info("Stopping Pyroscope profiler...")
	if err := p.profiler.Stop(); err != nil {
		p.logger.Error("Error stopping profiler", zap.Error(err))
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	return nil
}

// IsEnabled returns whether profiling is running.
func (p *Profiler) IsEnabled() bool {
	return p.config.Enabled && p.profiler != nil
}

// pyroscopeLogger adapts zap.Logger to the pyroscope.Logger interface.
type pyroscopeLogger struct {
	logger *zap.SugaredLogger
}

func newPyroscopeLogger(logger *zap.Logger) pyroscope.Logger {
	return &pyroscopeLogger{logger: logger.Named("pyroscope").Sugar()}
}

func (l *pyroscopeLogger) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *pyroscopeLogger) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

func (l *pyroscopeLogger) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
