package app

import (
	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/modules/env"
	"github.com/vk/pipegridgo/modules/fetch"
	"github.com/vk/pipegridgo/modules/print"
	"github.com/vk/pipegridgo/modules/stats"
)

// coreModules is the definitive list of all task modules that are compiled
// into the pipegridgo binary.
var coreModules = []registry.Module{
	&env.Module{},
	&fetch.Module{},
	&print.Module{},
	&stats.Module{},
}
