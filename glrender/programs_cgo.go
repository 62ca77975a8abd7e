//go:build !tinygo && cgo

package glrender

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/sdfrast"
	"github.com/soypat/sdfrast/glbuild"
)

// programCache holds the compiled program of every node drawn so far. Programs are
// rebuilt lazily the first time a node flagged for rebuild is considered for drawing.
type programCache struct {
	log        *slog.Logger
	programmer *glbuild.Programmer
	progs      map[*sdfrast.Node]*nodeProgram
	buf        bytes.Buffer
}

type nodeProgram struct {
	prog glgl.Program
	key  programKey
	// ok is false when the node has no usable program. The node is not drawn until it is flagged again.
	ok bool
}

func newProgramCache(log *slog.Logger, programmer *glbuild.Programmer) programCache {
	return programCache{
		log:        log,
		programmer: programmer,
		progs:      make(map[*sdfrast.Node]*nodeProgram),
	}
}

// program returns the compiled program of n, building it if n needs a rebuild.
func (pc *programCache) program(n *sdfrast.Node) (glgl.Program, bool) {
	np := pc.progs[n]
	if np != nil && !n.NeedsRebuild() {
		return np.prog, np.ok
	}
	if np == nil {
		np = &nodeProgram{}
		pc.progs[n] = np
	}
	n.ClearRebuild()
	key := makeProgramKey(n)
	prog, err := pc.build(n)
	if err != nil {
		if keepOnFailure(np.key, np.ok, key) {
			pc.log.Error("node program build failed, drawing previous program",
				slog.String("node", n.Name()), slog.Int("id", n.ID()), slog.Any("err", err))
			return np.prog, true
		}
		if np.ok {
			np.prog.Delete()
			np.ok = false
		}
		pc.log.Error("node program build failed, node culled until next edit",
			slog.String("node", n.Name()), slog.Int("id", n.ID()), slog.Any("err", err))
		return glgl.Program{}, false
	}
	if np.ok {
		np.prog.Delete()
	}
	pc.log.Debug("node program built", slog.String("node", n.Name()), slog.Int("id", n.ID()))
	np.prog, np.key, np.ok = prog, key, true
	return prog, true
}

func (pc *programCache) build(n *sdfrast.Node) (glgl.Program, error) {
	pc.buf.Reset()
	_, err := sdfrast.WriteNodeProgram(&pc.buf, pc.programmer, n)
	if err != nil {
		return glgl.Program{}, err
	}
	pc.buf.WriteByte(0)
	prog, err := compileFragment(pc.buf.String())
	if err != nil {
		return glgl.Program{}, fmt.Errorf("compiling %q: %w", n.Name(), err)
	}
	return prog, nil
}

// prune releases the programs of nodes no longer owned by tree.
func (pc *programCache) prune(tree *sdfrast.Tree) {
	for n, np := range pc.progs {
		if n.Tree() == tree {
			continue
		}
		if np.ok {
			np.prog.Delete()
		}
		delete(pc.progs, n)
	}
}

func (pc *programCache) delete() {
	for n, np := range pc.progs {
		if np.ok {
			np.prog.Delete()
		}
		delete(pc.progs, n)
	}
}

// compileFixed compiles the built-in programs.
func compileFixed(progs *[numFixedPrograms]glgl.Program, maxStackDepth int) error {
	var src glbuild.Source
	var buf []byte
	for fp := fixedProgram(0); fp < numFixedPrograms; fp++ {
		err := fp.writeSource(&src, maxStackDepth)
		if err != nil {
			return err
		}
		buf = src.AppendTo(buf[:0])
		buf = append(buf, 0)
		progs[fp], err = compileFragment(string(buf))
		if err != nil {
			return fmt.Errorf("compiling %s program: %w", fp, err)
		}
	}
	return nil
}
