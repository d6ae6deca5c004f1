package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Scanner reads migration files from a file system.
type Scanner struct{}

// NewScanner returns a Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan returns the .sql files at the root of fsys ordered by numeric version.
func (s *Scanner) Scan(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, NewMigrationError("", ".", "read directory", err)
	}

	migrations := make([]Migration, 0, len(entries))
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, description, err := s.ValidateFileName(entry.Name())
		if err != nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename", err)
		}
		if existing, ok := seen[version]; ok {
			return nil, NewMigrationError(version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, version, existing, entry.Name()))
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, NewMigrationError(version, entry.Name(), "read file", err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return nil, NewMigrationError(version, entry.Name(), "read file",
				fmt.Errorf("%w: file is empty", ErrInvalidMigrationFile))
		}

		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			SQL:         string(content),
			FilePath:    entry.Name(),
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

// ValidateFileName splits a {version}_{description}.sql name.
func (s *Scanner) ValidateFileName(name string) (version, description string, err error) {
	matches := fileNamePattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return "", "", fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'", ErrInvalidMigrationFile, name)
	}
	return matches[1], matches[2], nil
}

func versionNumber(version string) int {
	n, _ := strconv.Atoi(version)
	return n
}

// splitStatements splits a file on semicolons and drops comment-only lines.
func splitStatements(content string) []string {
	var statements []string
	for _, chunk := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
