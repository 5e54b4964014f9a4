package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"babel-relay/errors"
)

//go:embed censored/*
var censoredFS embed.FS

// WordLists carries the loaded word lists plus metadata for logging.
type WordLists struct {
	Words     []string
	Languages []string
}

// LoadEmbedded reads the word lists shipped with the binary. One .txt file
// per language, one word per line.
func LoadEmbedded() (*WordLists, error) {
	return load(censoredFS, "censored")
}

func load(fsys embed.FS, path string) (*WordLists, error) {
	entries, err := fs.ReadDir(fsys, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fsys.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// Scanner handles both \n and \r\n endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return &WordLists{Words: words, Languages: languages}, nil
}
