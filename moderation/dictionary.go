package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"pulsechat/errors"
)

//go:embed dictionaries
var dictionariesFS embed.FS

// DefaultDictionaries loads the word lists shipped with the binary.
func DefaultDictionaries() (map[string][]string, error) {
	return LoadDictionaries(dictionariesFS, "dictionaries")
}

// LoadDictionaries scans a directory of ".txt" files, one per language,
// named by ISO 639-1 code (e.g. "fr.txt"). Each line is one censored word.
func LoadDictionaries(f fs.FS, dir string) (map[string][]string, error) {
	entries, err := fs.ReadDir(f, dir)
	if err != nil {
		return nil, err
	}

	dictionaries := make(map[string][]string)
	total := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".txt")

		data, err := fs.ReadFile(f, dir+"/"+entry.Name())
		if err != nil {
			return nil, err
		}

		unique := make(map[string]struct{})
		// A scanner handles both \n and \r\n line endings
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

		words := make([]string, 0, len(unique))
		for w := range unique {
			words = append(words, w)
		}
		if len(words) > 0 {
			dictionaries[lang] = words
			total += len(words)
		}
	}

	if total == 0 {
		return nil, errors.ErrEmptyWords
	}
	return dictionaries, nil
}
