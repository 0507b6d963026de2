package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/lumen/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "lumen"
	app.Usage = "render triangle scenes using BVH accelerated ray casting"
	app.Version = "0.1.0"
	app.Flags = cmd.LoggingFlags
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file, build a BVH tree to optimize
ray intersection tests and package scene elements in a GPU-friendly format.

The optimized scene data is then written to a zip archive which can be supplied
as an argument to the render command.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display information about a compiled scene",
			ArgsUsage: "scene_file.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "render",
			Usage: "render a single frame",
			Description: `
Render a single frame of a wavefront obj or compiled zip scene and write it to
a png file. Settings are read from an optional configuration file; flags
override values from the configuration file.`,
			ArgsUsage: "scene_file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Usage: "configuration file",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
				cli.IntFlag{
					Name:  "seed",
					Value: 1,
					Usage: "seed for the per-pixel random streams; must be positive",
				},
				cli.Float64Flag{
					Name:  "time",
					Usage: "elapsed time in seconds; drives the sun and the camera orbit",
				},
				cli.IntFlag{
					Name:  "tracers",
					Value: 1,
					Usage: "number of cpu tracers that split the frame",
				},
				cli.IntFlag{
					Name:  "group-size",
					Value: 16,
					Usage: "work group edge length (16 or 32)",
				},
				cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "integer magnification for the output image",
				},
				cli.BoolFlag{
					Name:  "no-sky",
					Usage: "use the background color for rays that miss the scene",
				},
				cli.BoolFlag{
					Name:  "jitter",
					Usage: "jitter primary rays inside their pixel",
				},
			},
			Action: cmd.RenderFrame,
		},
		{
			Name:  "shaders",
			Usage: "compile the WGSL kernels to SPIR-V",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: ".",
					Usage: "output directory for the .spv files",
				},
			},
			Action: cmd.CompileShaders,
		},
		{
			Name:   "example-config",
			Usage:  "print an example configuration file",
			Action: cmd.ShowExampleConfig,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
