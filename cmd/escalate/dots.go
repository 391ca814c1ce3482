package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	id "haulgate/pkg/domain"
)

// dotFile is the -file layout:
//
//	dot_numbers:
//	  - "1234567"
//	  - USDOT 7654321
type dotFile struct {
	DOTNumbers []string `yaml:"dot_numbers"`
}

// collectDOTs merges the file list and positional arguments, validating each
// and dropping duplicates while keeping first-seen order.
func collectDOTs(path string, args []string) ([]id.DOTNumber, error) {
	var raw []string
	if path != "" {
		fromFile, err := loadDOTFile(path)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}
	raw = append(raw, args...)

	seen := make(map[id.DOTNumber]struct{}, len(raw))
	dots := make([]id.DOTNumber, 0, len(raw))
	for _, v := range raw {
		dot, err := id.ParseDOTNumber(v)
		if err != nil {
			return nil, fmt.Errorf("DOT number %q: %w", v, err)
		}
		if _, dup := seen[dot]; dup {
			continue
		}
		seen[dot] = struct{}{}
		dots = append(dots, dot)
	}
	return dots, nil
}

func loadDOTFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read DOT file: %w", err)
	}
	var f dotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse DOT file %s: %w", path, err)
	}
	return f.DOTNumbers, nil
}
