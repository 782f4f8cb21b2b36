package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "bvhtool"
	app.Usage = "build and query bounding volume hierarchies over triangle meshes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}

	buildFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "yaml file with build options",
		},
		cli.StringFlag{
			Name:  "strategy, s",
			Usage: "split strategy: sah, center or average",
		},
		cli.IntFlag{
			Name:  "max-leaf-size",
			Usage: "maximum number of triangles per leaf",
		},
		cli.IntFlag{
			Name:  "max-depth",
			Usage: "maximum tree depth",
		},
		cli.BoolFlag{
			Name:  "indirect",
			Usage: "leave the mesh index buffer untouched and reorder a permutation instead",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build a hierarchy and display its statistics",
			Description: `
Load a mesh from a wavefront obj file (or one of the built in shapes "cube",
"sphere" and "square"), build a hierarchy over its triangles and print a
summary table.

When --out is given the hierarchy is written to a zip snapshot that the
inspect command can load without rebuilding.`,
			ArgsUsage: "mesh.obj",
			Flags: append(buildFlags,
				cli.StringFlag{
					Name:  "out, o",
					Usage: "snapshot file to write",
				},
			),
			Action: buildTree,
		},
		{
			Name:      "inspect",
			Usage:     "load a snapshot, check its invariants and display its statistics",
			ArgsUsage: "mesh.obj snapshot.zip",
			Action:    inspectSnapshot,
		},
		{
			Name:      "raycast",
			Usage:     "cast a ray against a mesh",
			ArgsUsage: "mesh.obj",
			Flags: append(buildFlags,
				cli.StringFlag{
					Name:  "origin",
					Value: "0,0,10",
					Usage: "ray origin as x,y,z",
				},
				cli.StringFlag{
					Name:  "dir",
					Value: "0,0,-1",
					Usage: "ray direction as x,y,z",
				},
				cli.StringFlag{
					Name:  "side",
					Value: "front",
					Usage: "faces to hit: front, back or double",
				},
				cli.BoolFlag{
					Name:  "all",
					Usage: "report every hit instead of the closest one",
				},
			),
			Action: raycast,
		},
		{
			Name:      "image",
			Usage:     "draw the node boxes projected along an axis",
			ArgsUsage: "mesh.obj",
			Flags: append(buildFlags,
				cli.StringFlag{
					Name:  "axis",
					Value: "z",
					Usage: "projection axis: x, y or z",
				},
				cli.IntFlag{
					Name:  "size",
					Value: 512,
					Usage: "image width and height in pixels",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "bvh.bmp",
					Usage: "bitmap file to write",
				},
			),
			Action: writeImage,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
