// Package pkgutil loads Go packages for constraint generation.
package pkgutil

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/packages"
)

// Should be equivalent to packages.LoadAllSyntax (which is deprecated)
const LoadMode = packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedTypes |
	packages.NeedTypesSizes | packages.NeedImports | packages.NeedName |
	packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedDeps

var ErrPackageErrors = errors.New("errors encountered while loading packages")

const fakeGopath = "/fake"

// LoadPackagesFromSource loads a single main package consisting of one file
// with the given contents.
func LoadPackagesFromSource(source string) ([]*packages.Package, error) {
	return LoadPackagesFromFiles(map[string]string{"main.go": source})
}

// LoadPackagesFromFiles loads a package made of the given files, keyed by
// file name.
func LoadPackagesFromFiles(files map[string]string) ([]*packages.Package, error) {
	// We use the Overlay mechanism to allow the tool to load non-existent files.
	dir := path.Join(fakeGopath, "testpackage")
	overlay := make(map[string][]byte, len(files))
	queries := make([]string, 0, len(files))
	for name, src := range files {
		file := path.Join(dir, name)
		overlay[file] = []byte(src)
		queries = append(queries, file)
	}
	sort.Strings(queries)

	config := &packages.Config{
		Mode:    LoadMode,
		Tests:   false,
		Dir:     "",
		Env:     append(os.Environ(), "GO111MODULE=off", "GOPATH="+fakeGopath),
		Overlay: overlay,
	}

	return LoadPackagesWithConfig(config, queries...)
}

// LoadPackagesWithConfig loads the packages matching queries. Errors in
// individual packages are logged and reported as ErrPackageErrors together
// with the packages that were loaded.
func LoadPackagesWithConfig(config *packages.Config, queries ...string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(config, queries...)
	if err != nil {
		return nil, err
	}

	count := 0
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, err := range pkg.Errors {
			count++
			logrus.WithFields(logrus.Fields{
				"package": pkg.PkgPath,
				"kind":    err.Kind,
			}).Error(err.Msg)
		}
	})

	if count > 0 {
		return pkgs, fmt.Errorf("%w: %d errors", ErrPackageErrors, count)
	}
	return pkgs, nil
}
