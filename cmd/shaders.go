package cmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/achilleasa/lumen/tracer/wgsl"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Compile the WGSL kernels to SPIR-V modules.
func CompileShaders(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	outDir := ctx.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	modules, err := wgsl.CompileAll()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Kernel", "File", "Words", "Size"})
	for _, name := range wgsl.Kernels() {
		code := modules[name]

		var spirv bytes.Buffer
		if err = binary.Write(&spirv, binary.LittleEndian, code); err != nil {
			return err
		}

		outFile := filepath.Join(outDir, name+".spv")
		if err = os.WriteFile(outFile, spirv.Bytes(), 0644); err != nil {
			return err
		}

		table.Append([]string{name, outFile, fmt.Sprintf("%d", len(code)), fmt.Sprintf("%d bytes", spirv.Len())})
	}

	table.Render()
	logger.Noticef("compiled %d kernel(s)\n%s", len(modules), buf.String())
	return nil
}
