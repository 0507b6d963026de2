package reader

import (
	"errors"
	"fmt"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/scene"
)

var ErrUnsupportedFormat = errors.New("reader: unsupported scene format")

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from a local file or http(s) URL. Wavefront (.obj) files are
// compiled into a BVH while compiled (.zip) scenes are loaded as-is.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	reader, err := readerFor(res)
	if err != nil {
		return nil, err
	}
	return reader.Read(res)
}

// Select reader based on the resource extension.
func readerFor(res *asset.Resource) (Reader, error) {
	switch res.Ext() {
	case ".obj":
		return newWavefrontReader(), nil
	case ".zip":
		return newZipSceneReader(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, res.Path())
}
