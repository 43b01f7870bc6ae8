/*
Package contracts provides access to the compiled Trust Registry contract.

Contracts are compiled into <dir>/contract.nef and <dir>/manifest.json where
<dir> is the contract source directory.
*/
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
)

const (
	trustDir = "trust"

	nefName      = "contract.nef"
	manifestName = "manifest.json"
)

// Contract groups information about Neo contract stored in the current package.
type Contract struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

var (
	errInvalidNEF      = errors.New("invalid NEF")
	errInvalidManifest = errors.New("invalid manifest")
)

// GetTrust reads compiled Trust Registry contract from the root directory of
// the compiled contracts, usually the "contracts" directory of the repository.
func GetTrust(root string) (Contract, error) {
	return Read(os.DirFS(root))
}

// Read is the same as GetTrust but allows to override source fs.FS.
func Read(fsys fs.FS) (Contract, error) {
	c, err := readContractFromDir(fsys, trustDir)
	if err != nil {
		return c, fmt.Errorf("read contract %s: %w", trustDir, err)
	}

	return c, nil
}

func readContractFromDir(fsys fs.FS, dir string) (Contract, error) {
	var c Contract

	// fs.FS uses "/" even on Windows, so filepath.Join() is not applicable.
	fNEF, err := fsys.Open(dir + "/" + nefName)
	if err != nil {
		return c, fmt.Errorf("open NEF: %w", err)
	}
	defer fNEF.Close()

	fManifest, err := fsys.Open(dir + "/" + manifestName)
	if err != nil {
		return c, fmt.Errorf("open manifest: %w", err)
	}
	defer fManifest.Close()

	bReader := io.NewBinReaderFromIO(fNEF)
	c.NEF.DecodeBinary(bReader)
	if bReader.Err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidNEF, bReader.Err)
	}

	err = json.NewDecoder(fManifest).Decode(&c.Manifest)
	if err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidManifest, err)
	}

	return c, nil
}
