package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ImVexed/meshbvh"
	"github.com/ImVexed/meshbvh/internal/mesh"
)

// This file is an example using meshbvh to simulate a lingering AoE spell
// that digs a crater into deformable terrain and damages the mobs standing
// inside it over multiple ticks.

type LingeringAoESpell struct {
	duration time.Duration
	dps      float64
	position mgl64.Vec3
	radius   float64
	// Depth the crater sinks per tick.
	dig float64
}

type Mob struct {
	idx      int
	health   float64
	position mgl64.Vec3
}

// Terrain is a heightfield whose vertices the spell pushes down.
type Terrain struct {
	geo       *meshbvh.Geometry
	positions meshbvh.Float64Positions
	tree      *meshbvh.Tree
	// Triangles touching each vertex, used to mark refit work.
	vertexFaces [][]int
}

func NewTerrain(size float64, segments int) (*Terrain, error) {
	m := mesh.Plane(size, size, segments, segments)
	t := &Terrain{positions: meshbvh.Float64Positions(m.Positions)}
	t.geo = meshbvh.NewGeometry(m.Positions, m.Indices)
	t.geo.Positions = t.positions

	t.vertexFaces = make([][]int, t.positions.Len())
	for i, v := range m.Indices {
		t.vertexFaces[v] = append(t.vertexFaces[v], i/3)
	}

	// Indirect mode keeps face ids in mesh order so vertexFaces stays valid.
	opts := meshbvh.DefaultOptions()
	opts.Indirect = true
	tree, err := meshbvh.NewTree(t.geo, opts)
	if err != nil {
		return nil, err
	}
	t.tree = tree
	return t, nil
}

// HeightAt casts a ray straight down onto the terrain.
func (t *Terrain) HeightAt(x, y float64) float64 {
	ray := meshbvh.Ray{Origin: mgl64.Vec3{x, y, 1e4}, Direction: mgl64.Vec3{0, 0, -1}}
	hit, ok := t.tree.RaycastFirst(ray, 0, math.Inf(1), meshbvh.DoubleSide)
	if !ok {
		return 0
	}
	return hit.Point[2]
}

// Dig lowers every vertex within radius of center and refits the faces it
// touched.
func (t *Terrain) Dig(center mgl64.Vec3, radius, depth float64) int {
	seen := map[int]bool{}
	var dirty []int
	for i := 0; i < t.positions.Len(); i++ {
		p := t.positions.At(i)
		d := math.Hypot(p[0]-center[0], p[1]-center[1])
		if d > radius {
			continue
		}
		p[2] -= depth * (1 - d/radius)
		t.positions.Set(i, p)
		for _, f := range t.vertexFaces[i] {
			if !seen[f] {
				seen[f] = true
				dirty = append(dirty, f)
			}
		}
	}
	t.tree.Refit(dirty)
	return len(dirty)
}

func main() {
	rand.Seed(int64(time.Now().Nanosecond()))
	mobCount := 2_000
	fmt.Printf("Building terrain and %d mobs, this may take a moment...\n", mobCount)

	terrain, err := NewTerrain(1_000, 100)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	// Every mob shares one unit cube hierarchy placed by its own transform.
	cube := mesh.Cube(2)
	body, err := meshbvh.NewTree(meshbvh.NewGeometry(cube.Positions, cube.Indices), meshbvh.DefaultOptions())
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	mobs := make([]*Mob, mobCount)
	for n := range mobs {
		x, y := rand.Float64()*1_000-500, rand.Float64()*1_000-500
		mobs[n] = &Mob{
			idx:      n,
			health:   float64(rand.Intn(120)), // 100 damage is dealt over 2 seconds, so only ~20% should survive
			position: mgl64.Vec3{x, y, terrain.HeightAt(x, y) + 1},
		}
	}

	tickRate := time.Second / 30
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	spell := &LingeringAoESpell{
		duration: 2 * time.Second,
		dps:      50,
		position: mgl64.Vec3{rand.Float64()*600 - 300, rand.Float64()*600 - 300, 0},
		radius:   150,
		dig:      0.5,
	}
	spell.position[2] = terrain.HeightAt(spell.position[0], spell.position[1])

	casted := time.Now()
	ticks := 0
	deadMobs := 0
	fmt.Println("Starting simulation loop!")
	for {
		delta := time.Since(<-ticker.C)
		ticks++
		if delta.Milliseconds() > 0 {
			fmt.Println("WARN: Tick rate slipped ", delta)
		}
		if time.Since(casted) > spell.duration {
			break
		}

		terrain.Dig(spell.position, spell.radius, spell.dig)

		for _, m := range mobs {
			if m.health <= 0 {
				continue
			}
			// Mobs standing in the crater sink with the ground.
			m.position[2] = terrain.HeightAt(m.position[0], m.position[1]) + 1

			// Test the spell sphere against the mob's mesh in its local space.
			local := spell.position.Sub(m.position)
			if !body.IntersectsSphere(local, spell.radius) {
				continue
			}
			m.health -= (spell.dps / float64(time.Second.Milliseconds())) * float64((tickRate + delta).Milliseconds())
			if m.health <= 0 {
				m.health = 0
				deadMobs++
			}
		}
	}

	if err := terrain.tree.Validate(); err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	fmt.Printf("Spell ended, %d ticks in %s, %d out of %d mobs killed\n", ticks, time.Since(casted), deadMobs, mobCount)
	fmt.Println("Dumping image of terrain hierarchy at ./spell.bmp")
	f, err := os.Create("./spell.bmp")
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := terrain.tree.WriteImage(f, meshbvh.Z, 512); err != nil {
		fmt.Println("ERROR:", err)
	}
}
