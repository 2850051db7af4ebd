//go:build pprof

package main

import (
	"maps"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"
	"go.uber.org/zap"
)

var profileModes = map[string]func(*profile.Profile){
	"block":     profile.BlockProfile,
	"cpu":       profile.CPUProfile,
	"clock":     profile.ClockProfile,
	"goroutine": profile.GoroutineProfile,
	"mem":       profile.MemProfile,
	"allocs":    profile.MemProfileAllocs,
	"heap":      profile.MemProfileHeap,
	"mutex":     profile.MutexProfile,
	"thread":    profile.ThreadcreationProfile,
	"trace":     profile.TraceProfile,
}

type profileConfig struct {
	Profile     string `default:""  enum:",${profileModes}" help:"Enable profiling." placeholder:"MODE"`
	ProfilePath string `default:"." help:"Profile output directory." type:"path"`
}

func (profileConfig) vars() kong.Vars {
	return kong.Vars{
		"profileModes": strings.Join(slices.Sorted(maps.Keys(profileModes)), ","),
	}
}

func (profileConfig) group() kong.Group {
	return kong.Group{Key: "profile", Title: "Profiling (pprof)"}
}

// start begins profiling when a mode is set and returns the stop function.
func (p profileConfig) start(logger *zap.Logger) (stop func()) {
	mode, ok := profileModes[p.Profile]
	if !ok {
		return func() {}
	}

	logger.Debug("profiling started",
		zap.String("mode", p.Profile),
		zap.String("path", p.ProfilePath))
	profiler := profile.Start(mode, profile.ProfilePath(p.ProfilePath), profile.Quiet, profile.NoShutdownHook)

	return func() {
		profiler.Stop()
		logger.Debug("profiling stopped", zap.String("mode", p.Profile))
	}
}
