package dataset

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

// GobDump writes v gzipped and gob encoded
func GobDump(filename string, v interface{}) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if err := gob.NewEncoder(zw).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %q: %w", filename, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// GobLoad reads a file written by GobDump into v
func GobLoad(filename string, v interface{}) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gunzip %q: %w", filename, err)
	}
	defer zr.Close()
	if err := gob.NewDecoder(zr).Decode(v); err != nil {
		return fmt.Errorf("decode %q: %w", filename, err)
	}
	return nil
}

// Snapshot parses a geonames settlements dump and saves it for faster loading
func Snapshot(source, saved string) (*Table, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadGeonames(f, Settlements)
	if err != nil {
		return nil, fmt.Errorf("failed to process %q -- %w", source, err)
	}
	return t, GobDump(saved, t)
}
