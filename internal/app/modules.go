package app

import (
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/mdflow/mdflow/modules/analysis"
	"github.com/mdflow/mdflow/modules/exec"
)

// coreModules is the definitive list of runner modules compiled into the
// mdflow binary.
var coreModules = []registry.Module{
	&exec.Module{},
	&analysis.Module{},
}
