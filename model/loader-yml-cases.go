package model

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a case table from a yaml file:
//
//	cases:
//	  - name: luf
//	    engine: lualatex
//	    unicode-math: true
//	    flexpos: true
func LoadTable(fn string) (Table, error) {
	fn, err := filepath.Abs(fn)
	if err != nil {
		return nil, err
	}

	log.Printf("loading test cases from %s\n", fn)
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	return ParseTable(buf)
}

func ParseTable(buf []byte) (Table, error) {
	type tableLoader struct {
		Cases Table `yaml:"cases"`
	}

	t := tableLoader{}
	err := yaml.Unmarshal(buf, &t)
	if err != nil {
		return nil, err
	}
	if err = t.Cases.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case table: %w", err)
	}
	return t.Cases, nil
}
