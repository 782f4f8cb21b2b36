package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/urfave/cli"

	"github.com/ImVexed/meshbvh"
	"github.com/ImVexed/meshbvh/internal/mesh"
)

// loadMesh reads an obj file or generates one of the built in shapes.
func loadMesh(name string) (*mesh.Mesh, error) {
	switch name {
	case "":
		return nil, errors.New("missing mesh argument")
	case "cube":
		return mesh.Cube(1), nil
	case "sphere":
		return mesh.Sphere(1, 100, 51), nil
	case "square":
		return mesh.Square(), nil
	}
	if !strings.HasSuffix(name, ".obj") {
		return nil, fmt.Errorf("unsupported mesh file %s; expected a .obj file", name)
	}
	return mesh.LoadOBJ(name)
}

func geometryOf(m *mesh.Mesh) *meshbvh.Geometry {
	geo := meshbvh.NewGeometry(m.Positions, m.Indices)
	for _, g := range m.Groups {
		geo.Groups = append(geo.Groups, meshbvh.Range{Start: g.Start, Count: g.Count})
	}
	return geo
}

// buildOptions layers command line flags over the optional yaml config.
func buildOptions(ctx *cli.Context) (meshbvh.Options, error) {
	opts := meshbvh.DefaultOptions()
	if path := ctx.String("config"); path != "" {
		var err error
		if opts, err = meshbvh.LoadOptionsFile(path); err != nil {
			return opts, err
		}
	}
	if name := ctx.String("strategy"); name != "" {
		s, err := meshbvh.ParseSplitStrategy(name)
		if err != nil {
			return opts, err
		}
		opts.Strategy = s
	}
	if ctx.IsSet("max-leaf-size") {
		opts.MaxLeafSize = ctx.Int("max-leaf-size")
	}
	if ctx.IsSet("max-depth") {
		opts.MaxDepth = ctx.Int("max-depth")
	}
	if ctx.Bool("indirect") {
		opts.Indirect = true
	}
	opts.Logger = logger
	opts.Progress = func(fraction float64) {
		logger.Debugf("build progress: %3.0f%%", fraction*100)
	}
	return opts, opts.Validate()
}

func loadTree(ctx *cli.Context) (*meshbvh.Tree, error) {
	m, err := loadMesh(ctx.Args().First())
	if err != nil {
		return nil, err
	}
	opts, err := buildOptions(ctx)
	if err != nil {
		return nil, err
	}
	return meshbvh.NewTree(geometryOf(m), opts)
}

func buildTree(ctx *cli.Context) error {
	setupLogging(ctx)

	tree, err := loadTree(ctx)
	if err != nil {
		return err
	}
	fmt.Print(tree.Stats())

	if out := ctx.String("out"); out != "" {
		if err := meshbvh.SaveSnapshot(out, tree.Serialize()); err != nil {
			return err
		}
		logger.Infof("wrote snapshot to %s", out)
	}
	return nil
}

func inspectSnapshot(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return errors.New("expected a mesh and a snapshot file")
	}
	m, err := loadMesh(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	snap, err := meshbvh.LoadSnapshot(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	opts := meshbvh.DefaultOptions()
	opts.Logger = logger
	tree, err := meshbvh.Deserialize(geometryOf(m), snap, opts)
	if err != nil {
		return err
	}
	if err := tree.Validate(); err != nil {
		return err
	}
	fmt.Print(tree.Stats())
	return nil
}

func parseVec3(s string) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z; got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, fmt.Errorf("invalid component %q in %q", p, s)
		}
		v[i] = f
	}
	return v, nil
}

func parseSide(s string) (meshbvh.Side, error) {
	for _, side := range []meshbvh.Side{meshbvh.FrontSide, meshbvh.BackSide, meshbvh.DoubleSide} {
		if side.String() == s {
			return side, nil
		}
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

func raycast(ctx *cli.Context) error {
	setupLogging(ctx)

	origin, err := parseVec3(ctx.String("origin"))
	if err != nil {
		return err
	}
	dir, err := parseVec3(ctx.String("dir"))
	if err != nil {
		return err
	}
	side, err := parseSide(ctx.String("side"))
	if err != nil {
		return err
	}
	tree, err := loadTree(ctx)
	if err != nil {
		return err
	}

	ray := meshbvh.Ray{Origin: origin, Direction: dir}
	var hits []meshbvh.Hit
	if ctx.Bool("all") {
		hits = tree.Raycast(ray, 0, math.Inf(1), side)
	} else if hit, ok := tree.RaycastFirst(ray, 0, math.Inf(1), side); ok {
		hits = append(hits, hit)
	}
	if len(hits) == 0 {
		fmt.Println("no hit")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("face %d at distance %g, point (%g, %g, %g), front %t\n",
			h.Face, h.Distance, h.Point[0], h.Point[1], h.Point[2], h.FrontFace)
	}
	return nil
}

func writeImage(ctx *cli.Context) error {
	setupLogging(ctx)

	var axis meshbvh.Axis
	switch ctx.String("axis") {
	case "x":
		axis = meshbvh.X
	case "y":
		axis = meshbvh.Y
	case "z":
		axis = meshbvh.Z
	default:
		return fmt.Errorf("unknown axis %q", ctx.String("axis"))
	}

	tree, err := loadTree(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(ctx.String("out"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := tree.WriteImage(f, axis, ctx.Int("size")); err != nil {
		return err
	}
	logger.Infof("wrote %s", ctx.String("out"))
	return nil
}
