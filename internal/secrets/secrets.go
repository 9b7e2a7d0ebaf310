// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads the NCBI credentials from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value.
//
// Supported key files: ncbi-api-key, entrez-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Credentials holds the optional identity parameters sent with every
// E-utilities request. Either field may be empty.
type Credentials struct {
	// APIKey raises the NCBI request-rate allowance.
	APIKey string

	// Email lets NCBI reach the operator about problematic traffic.
	Email string
}

// Load reads the credential files from dir. A missing directory or missing
// files are not errors and leave the corresponding fields empty. Unreadable
// files produce a warning on stderr but do not abort.
func Load(dir string) (Credentials, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	var creds Credentials
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		value := strings.TrimSpace(string(data))

		switch name {
		case "ncbi-api-key":
			creds.APIKey = value
		case "entrez-email":
			creds.Email = value
		}
	}

	return creds, nil
}
