package moderation

import (
	"beam-chat/errors"
	"bufio"
	"bytes"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Dictionary is the merged content of the censored word lists.
type Dictionary struct {
	Words     []string
	Languages []string
}

// DictionaryLoader reads one word list per language ("fr.txt", "en.txt"...) from a directory.
type DictionaryLoader struct {
	fs fs.FS
}

func NewDictionaryLoader(f fs.FS) *DictionaryLoader {
	return &DictionaryLoader{fs: f}
}

// LoadAll merges every .txt file of dir into a sorted list of unique words.
// Blank lines are ignored; lines starting with # are comments.
func (l *DictionaryLoader) LoadAll(dir string) (*Dictionary, error) {
	entries, err := fs.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(l.fs, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		// Scanner copes with both \n and \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
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
	sort.Strings(words)
	return &Dictionary{Words: words, Languages: languages}, nil
}
