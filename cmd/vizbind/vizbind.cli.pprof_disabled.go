//go:build !pprof

package main

import (
	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

// profileConfig adds no flags when built without the pprof tag.
type profileConfig struct{}

func (profileConfig) vars() kong.Vars { return kong.Vars{} }

func (profileConfig) group() kong.Group {
	return kong.Group{Key: "profile", Title: "Profiling (pprof)"}
}

func (profileConfig) start(*zap.Logger) (stop func()) { return func() {} }
