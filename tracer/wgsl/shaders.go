// Package wgsl contains the GPU versions of the ray generation and traversal
// kernels together with encoders for the buffers they consume.
package wgsl

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/achilleasa/lumen/log"
	"github.com/gogpu/naga"
)

var ErrUnknownKernel = errors.New("wgsl: unknown kernel")

// Workgroup edge used by all kernels.
const WorkgroupSize uint32 = 16

//go:embed shaders/common.wgsl
var commonWGSL string

//go:embed shaders/raygen.wgsl
var raygenWGSL string

//go:embed shaders/trace.wgsl
var traceWGSL string

// Kernel names.
const (
	RayGen = "raygen"
	Trace  = "trace"
)

var kernels = map[string]string{
	RayGen: raygenWGSL,
	Trace:  traceWGSL,
}

var logger = log.New("wgsl")

// Names of the available kernels in sorted order.
func Kernels() []string {
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get the complete WGSL source for a kernel including the shared declarations.
func Source(name string) (string, error) {
	src, ok := kernels[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	return commonWGSL + "\n" + src, nil
}

// Compile a kernel to SPIR-V words.
func Compile(name string) ([]uint32, error) {
	src, err := Source(name)
	if err != nil {
		return nil, err
	}

	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("wgsl: failed to compile %s kernel: %w", name, err)
	}
	spirvCode, err := spirvWords(spirvBytes)
	if err != nil {
		return nil, fmt.Errorf("wgsl: %s kernel: %w", name, err)
	}

	logger.Debugf("compiled %s kernel to %d SPIR-V words", name, len(spirvCode))
	return spirvCode, nil
}

// Split a SPIR-V module into its little-endian 32-bit words.
func spirvWords(spirvBytes []byte) ([]uint32, error) {
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V module has %d bytes; expected a multiple of 4", len(spirvBytes))
	}

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return spirvCode, nil
}

// Compile all kernels. The result is keyed by kernel name.
func CompileAll() (map[string][]uint32, error) {
	out := make(map[string][]uint32, len(kernels))
	for _, name := range Kernels() {
		code, err := Compile(name)
		if err != nil {
			return nil, err
		}
		out[name] = code
	}
	return out, nil
}
