package main

import (
	"github.com/cuemby/metacoord/pkg/catalog/boltcatalog"
	"github.com/cuemby/metacoord/pkg/fs"
)

// openDeps opens the bbolt catalog and local filesystem driver shared by
// every subcommand, rooted at the --catalog/--root flags.
func openDeps() (*boltcatalog.Catalog, *fs.LocalFs, error) {
	cat, err := boltcatalog.Open(catalogPath)
	if err != nil {
		return nil, nil, err
	}
	lf, err := fs.NewLocalFs(rootPath)
	if err != nil {
		cat.Close()
		return nil, nil, err
	}
	return cat, lf, nil
}
