//go:build !tinygo && cgo

package glrender

import (
	"image"
	"log"
	"os"
	"runtime"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast"
	"github.com/soypat/sdfrast/gleval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gpuAvailable bool

func TestMain(m *testing.M) {
	runtime.LockOSThread() // GL calls must run on the thread that created the context.
	term, err := gleval.Init1x1GLFW()
	if err != nil {
		log.Println("GPU tests disabled:", err)
	} else {
		gpuAvailable = true
	}
	code := m.Run()
	if term != nil {
		term()
	}
	os.Exit(code)
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	if !gpuAvailable {
		t.Skip("no GPU")
	}
	pl, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(pl.Delete)
	return pl
}

func newTestFilm(t *testing.T, w, h int) *Film {
	t.Helper()
	film, err := NewFilm(w, h)
	require.NoError(t, err)
	t.Cleanup(film.Delete)
	return film
}

func TestPipelineMatchesEmulation(t *testing.T) {
	pl := newTestPipeline(t)
	var bld sdfrast.Builder
	tree, a, b := newBinaryTree(t, sdfrast.OpSubtraction, bld.NewSphere(3), bld.NewBox(2, 2, 8, 0.1),
		mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0.5, 0, 8})
	require.NoError(t, bld.Err())
	scene := &BasicScene{Geometry: tree, LightList: []Light{NewPointLight(mgl32.Vec3{5, 5, 0})}}
	cam := NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 10})
	params := DefaultRenderParams()

	const w, h = 32, 24
	film := newTestFilm(t, w, h)
	require.NoError(t, pl.RenderScene(film, scene, cam, params))
	dist := make([]float32, w*h)
	ids := make([]int32, w*h)
	require.NoError(t, film.ReadDistances(dist))
	require.NoError(t, film.ReadIDs(ids))

	aspect := float32(w) / float32(h)
	var hits, mismatches int
	for j := 0; j < h; j++ {
		// Film rows start at the bottom.
		ndcY := 2*(float32(j)+0.5)/h - 1
		for i := 0; i < w; i++ {
			ndcX := 2*(float32(i)+0.5)/w - 1
			o, d := cam.Ray(aspect, ndcX, ndcY)
			r, err := EmulateRay(tree, vec(o), vec(d), params)
			require.NoError(t, err)
			pix := j*w + i
			if r.Status != RayHit {
				assert.Equal(t, int32(-1), ids[pix], "pixel %d,%d", i, j)
				continue
			}
			hits++
			if int(ids[pix]) != r.ID || math32.Abs(r.Traveled-dist[pix]) > 1e-2 {
				mismatches++
			}
		}
	}
	assert.NotZero(t, hits)
	// Rays grazing edges may diverge between float implementations.
	assert.LessOrEqual(t, mismatches, hits/50, "leaves %d and %d", a.ID(), b.ID())

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	require.NoError(t, film.ReadImage(img))
	c := img.RGBAAt(w/2, h/2)
	assert.NotZero(t, c.R, "center pixel is lit")
}

func TestPipelineRebuildOnEdit(t *testing.T) {
	pl := newTestPipeline(t)
	var bld sdfrast.Builder
	tree, a, _ := newBinaryTree(t, sdfrast.OpUnion, bld.NewSphere(1), bld.NewSphere(1),
		mgl32.Vec3{-2, 0, 10}, mgl32.Vec3{2, 0, 10})
	_, ok := pl.Program(a)
	require.True(t, ok)
	assert.False(t, a.NeedsRebuild())

	require.NoError(t, tree.AddInputDeformation(a, bld.Twist(0.5)))
	assert.True(t, a.NeedsRebuild())
	prog, ok := pl.Program(a)
	require.True(t, ok)
	assert.NotZero(t, prog.ID())
	assert.False(t, a.NeedsRebuild())
}

func TestPipelineComputeBounds(t *testing.T) {
	pl := newTestPipeline(t)
	var bld sdfrast.Builder
	leaf := sdfrast.NewLeaf("sphere", bld.NewSphere(1))
	_, err := sdfrast.NewTree(leaf)
	require.NoError(t, err)
	bb, err := pl.ComputeBounds(leaf, ms3.NewCenteredBox(ms3.Vec{}, ms3.Vec{X: 4, Y: 4, Z: 4}))
	require.NoError(t, err)
	assert.InDelta(t, -1, bb.Min.X, 0.1)
	assert.InDelta(t, 1, bb.Max.Z, 0.1)
}
