package main

import (
	conda2docker "github.com/0xa1bed0/conda2docker/internal/apps/conda2docker/cmds"
	"github.com/0xa1bed0/conda2docker/internal/runtime"
)

func main() {
	var execErr error

	rt := runtime.NewHostRuntime()
	defer rt.Finalize("conda2docker", "Type 'conda2docker help' to get help.", &execErr)

	execErr = conda2docker.Execute(rt)
}
