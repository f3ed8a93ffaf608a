package navtable

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatMsgpack Format = "msgpack"
	FormatJSON    Format = "json"
)

const fileVersion = 1

type tableFile struct {
	Version int     `json:"version" msgpack:"version"`
	Entries []Entry `json:"entries" msgpack:"entries"`
}

// FormatFor picks the encoding from a file extension. Anything other than
// .json is msgpack.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatMsgpack
}

// Encode writes the table to w.
func (t *Table) Encode(w io.Writer, format Format) error {
	file := tableFile{Version: fileVersion, Entries: t.Entries()}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(file), "encode json table")
	default:
		data, err := msgpack.Marshal(&file)
		if err != nil {
			return errors.Wrap(err, "encode msgpack table")
		}
		_, err = w.Write(data)
		return errors.Wrap(err, "write msgpack table")
	}
}

// Decode reads a table from r.
func Decode(r io.Reader, format Format) (*Table, error) {
	var file tableFile
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return nil, errors.Wrap(err, "decode json table")
		}
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "read msgpack table")
		}
		if err := msgpack.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrap(err, "decode msgpack table")
		}
	}
	if file.Version != fileVersion {
		return nil, errors.Wrapf(ErrCorruptTable, "unsupported version %d", file.Version)
	}
	t, err := FromEntries(file.Entries)
	if err != nil {
		return nil, errors.Wrap(err, "rebuild table")
	}
	return t, nil
}

// Save writes the table to path atomically, choosing the format from the
// extension.
func (t *Table) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create table directory")
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "create temp table")
	}
	if err := t.Encode(f, FormatFor(path)); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "close temp table")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "replace table")
	}
	return nil
}

// Load reads a table saved by Save.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open table %s", path)
	}
	defer f.Close()
	return Decode(f, FormatFor(path))
}
