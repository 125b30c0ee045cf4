package main

import (
	"github.com/google/wire"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/worker/watcher"
	"github.com/spf13/viper"
)

var workerSet = wire.NewSet(
	provideWatcherConfig,
	watcher.New,
	wire.Bind(new(core.Watcher), new(*watcher.Watcher)),
)

func provideWatcherConfig(v *viper.Viper) watcher.Config {
	return watcher.Config{
		Timeout:     v.GetDuration("watcher.timeout"),
		Interval:    v.GetDuration("watcher.interval"),
		Sweep:       v.GetDuration("watcher.sweep"),
		RetryWindow: v.GetDuration("watcher.retry_window"),
	}
}
