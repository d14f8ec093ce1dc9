package render

import (
	"fmt"
	"sort"
)

// mpi1Template runs one MPI rank per core.
const mpi1Template = `#!/bin/bash -l
#SBATCH -p {{.Partition}}
#SBATCH -N {{.NodeCount}}
#SBATCH -t {{.TimeLimit}}
#SBATCH -J {{.JobName}}
#SBATCH -o {{.OutputName}}

# Run {{.Iterations}} iterations
date
srun -n {{.Ranks}} {{.Binary}} {{.Iterations}} {{.ProblemOrder}}
date
`

// chapelTemplate runs one Chapel locale per node, each locale owning every
// hardware thread of its node.
const chapelTemplate = `#!/bin/bash -l
#SBATCH -p {{.Partition}}
#SBATCH -N {{.NodeCount}}
#SBATCH -t {{.TimeLimit}}
#SBATCH -J {{.JobName}}
#SBATCH -o {{.OutputName}}

# Run {{.Iterations}} iterations
export AMMPI_MPI_THREAD=multiple
export MPICH_MAX_THREAD_SAFETY=multiple
date
srun --nodes={{.NodeCount}} --ntasks={{.Ranks}} --tasks-per-node=1 --cpus-per-task={{.CpusPerTask}} {{.Binary}} -nl {{.NodeCount}} --iterations={{.Iterations}} --order={{.ProblemOrder}} --tile={{.TileSize}}
date
`

var builtins = map[string]string{
	"mpi1":   mpi1Template,
	"chapel": chapelTemplate,
}

// BuiltinNames returns the names of the built-in templates, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns the named built-in template.
func Builtin(name string) (*ScriptTemplate, error) {
	text, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownTemplate, name, BuiltinNames())
	}
	return New(name, text, RequiredSlots...)
}

// Resolve returns the built-in template called ref, or loads ref as a file
// path when no built-in has that name.
func Resolve(ref string) (*ScriptTemplate, error) {
	if _, ok := builtins[ref]; ok {
		return Builtin(ref)
	}
	return Load(ref)
}
