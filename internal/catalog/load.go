package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/catmatch/configs"
	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// Parse decodes a YAML taxonomy and builds it. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var tree Tree
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tree); err != nil && !errors.Is(err, io.EOF) {
		return nil, caterrors.CatalogError("failed to parse catalog", err)
	}
	return Build(tree)
}

// LoadFile reads and builds the taxonomy at path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, caterrors.New(caterrors.ErrCodeCatalogNotFound,
			fmt.Sprintf("failed to read catalog %s", path), err)
	}
	c, err := Parse(data)
	if err != nil {
		var ce *caterrors.CatError
		if errors.As(err, &ce) {
			ce.WithDetail("path", path)
		}
		return nil, err
	}
	return c, nil
}

// Default builds the embedded construction materials taxonomy.
func Default() (*Catalog, error) {
	return Parse(configs.DefaultCatalog)
}

// Load returns the catalog at path, or the default one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
