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

package mgc

import (
	"mgc/pkg/cache"
	"mgc/pkg/eval"
	"mgc/pkg/log"
	"mgc/pkg/render"
	"mgc/pkg/storage"
)

type (
	envHook    func(*storage.ConfigEnv)
	logHook    func(*log.Logger)
	appHook    func(*App)
	loaderHook func(*App) cache.LoadPlugin
)

type hookList struct {
	onEnv     []envHook
	onLog     []logHook
	onApp     []appHook
	loaders   []loaderHook
	effects   map[string]eval.EffectHandler
	nodes     map[string]eval.NodeEvaluator
	shader    render.ShaderHandler
	logSource []string
}

var hooks = &hookList{
	effects: map[string]eval.EffectHandler{},
	nodes:   map[string]eval.NodeEvaluator{},
}

// RegisterEnvHook registers hook that's called when environment
// config is loaded.
func RegisterEnvHook(h envHook) {
	hooks.onEnv = append(hooks.onEnv, h)
}

// RegisterLogHook is used to grab the logger.
func RegisterLogHook(h logHook) {
	hooks.onLog = append(hooks.onLog, h)
}

// RegisterAppHook registers hook that's called when the app is
// assembled.
func RegisterAppHook(h appHook) {
	hooks.onApp = append(hooks.onApp, h)
}

// RegisterLoadPlugin registers a media load plugin constructor.
// Load plugins are asked in registration order.
func RegisterLoadPlugin(h loaderHook) {
	hooks.loaders = append(hooks.loaders, h)
}

// RegisterEffectHook registers an effect handler for a type id.
func RegisterEffectHook(typeID string, h eval.EffectHandler) {
	hooks.effects[typeID] = h
}

// RegisterNodeEvaluator registers a graph-node evaluator for a
// type-id prefix.
func RegisterNodeEvaluator(prefix string, e eval.NodeEvaluator) {
	hooks.nodes[prefix] = e
}

// RegisterShaderHandler registers the shader rasterization backend.
func RegisterShaderHandler(h render.ShaderHandler) {
	hooks.shader = h
}

// RegisterLogSource adds log source.
func RegisterLogSource(s []string) {
	hooks.logSource = append(hooks.logSource, s...)
}

func (h *hookList) env(env *storage.ConfigEnv) {
	for _, hook := range h.onEnv {
		hook(env)
	}
}

func (h *hookList) log(logger *log.Logger) {
	for _, hook := range h.onLog {
		hook(logger)
	}
}

func (h *hookList) app(app *App) {
	for _, hook := range h.loaders {
		app.Cache.RegisterPlugin(hook(app))
	}
	for typeID, handler := range h.effects {
		app.Service.EffectRegistry().Register(typeID, handler)
	}
	for prefix, evaluator := range h.nodes {
		app.Service.NodeRegistry().Register(prefix, evaluator)
	}
	if h.shader != nil {
		app.Service.SetShaderHandler(h.shader)
	}
	for _, hook := range h.onApp {
		hook(app)
	}
}
