package document

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TextExtension is the only file type the loader picks up.
const TextExtension = ".txt"

// IsText reports whether name looks like a plain-text document.
func IsText(name string) bool {
	return strings.EqualFold(filepath.Ext(name), TextExtension)
}

// Load reads every *.txt file under root, recursing into subdirectories.
// If root is itself a text file, it is loaded on its own.
// Documents come back in lexical path order. An empty result is not an error here;
// callers decide whether zero documents is a failure.
func Load(root string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		if !IsText(root) {
			return nil, nil
		}
		doc, err := readDocument(root)
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !IsText(d.Name()) {
			return nil
		}
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return docs, nil
}

func readDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Document{Source: path, Text: string(data)}, nil
}
