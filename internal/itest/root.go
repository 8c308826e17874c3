//go:build integration

package itest

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

var findRepoRoot = sync.OnceValues(func() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "cmd", "subalign", "main.go")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("subalign checkout not found above working directory")
		}
		dir = parent
	}
})
