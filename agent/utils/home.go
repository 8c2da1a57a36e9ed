package utils

import (
	"os"
	"os/user"
	"path/filepath"
)

// BaseDir returns the user's home directory which is the default root for the
// agent's storage files.
func BaseDir() string {
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	currentUser, err := user.Current()
	if err != nil {
		panic(err)
	}
	return currentUser.HomeDir
}

// StorageDir returns the folder for the bolt files: the configured path or
// ~/.findy-didcomm.
func StorageDir() string {
	if p := Settings.StoragePath(); p != "" {
		return p
	}
	return filepath.Join(BaseDir(), ".findy-didcomm")
}
