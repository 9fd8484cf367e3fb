// Copyright 2020-2022 The MGC Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mgc wires the compositing core: project service,
// evaluation engine, media cache, audio pump and export queue.
package mgc

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"mgc/pkg/cache"
	"mgc/pkg/log"
	"mgc/pkg/service"
	"mgc/pkg/storage"
	"mgc/pkg/system"
)

// App is the assembled engine.
type App struct {
	Log     *log.Logger
	Env     *storage.ConfigEnv
	Cache   *cache.Manager
	Meta    *cache.MetaDB
	Watcher *cache.Watcher
	Service *service.Service
	Storage *storage.Manager
	System  *system.System

	wg *sync.WaitGroup
}

// NewApp assembles the engine from an environment config. The
// returned cancel function shuts the app down.
func NewApp(envPath string) (*App, context.CancelFunc, error) {
	envYAML, err := os.ReadFile(envPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read env.yaml: %w", err)
	}

	env, err := storage.NewConfigEnv(envPath, envYAML)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get environment config: %w", err)
	}
	hooks.env(env)

	if err := env.PrepareEnvironment(); err != nil {
		return nil, nil, fmt.Errorf("could not prepare environment: %w", err)
	}

	logger := log.NewLogger()
	hooks.log(logger)

	ctx, cancel := context.WithCancel(context.Background())

	if err := logger.Start(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	go logger.LogToStdout(ctx)
	time.Sleep(10 * time.Millisecond)

	wg := &sync.WaitGroup{}
	logDB := log.NewDB(env.LogDBPath(), wg)
	if err := logDB.Init(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	go logDB.SaveLogs(ctx, logger)

	cacheManager := cache.NewManager(env.SampleRate, logger)

	metaDB, err := cache.NewMetaDB(ctx, env.MetaDBPath())
	if err != nil {
		cancel()
		return nil, nil, err
	}

	watcher, err := cache.NewWatcher(ctx, cacheManager)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	storageManager := storage.NewManager(env.StorageDir, env.MaxDiskUsage, logger)
	go storageManager.PurgeLoop(ctx, 10*time.Minute)

	svc := service.New(service.Config{
		FontDir:    env.FontDir,
		FFmpegBin:  env.FFmpegBin,
		SampleRate: env.SampleRate,
		Cache:      cacheManager,
		Logger:     logger,
	})

	sys := system.New(storageManager.Usage, logger)

	app := &App{
		Log:     logger,
		Env:     env,
		Cache:   cacheManager,
		Meta:    metaDB,
		Watcher: watcher,
		Service: svc,
		Storage: storageManager,
		System:  sys,
		wg:      wg,
	}

	// Addons register their plugins against the assembled app.
	hooks.app(app)

	cancel2 := func() {
		cancel()
		wg.Wait()
	}
	return app, cancel2, nil
}
