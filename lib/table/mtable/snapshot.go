package mtable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	magicNum        = "DHOOKTB\x00" // File format identifier
	snapshotVersion = 1
	bufferSize      = 1024 * 1024 // 1 MB
)

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes a snapshot of the table to w.
// Rows are copied one at a time, so concurrent writes may or may not be included.
//
// Thread-safety: This function allows concurrent operations with all other functions
// except Load.
func (t *Table) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, bufferSize)

	// Collect a copy of every row in key order
	type rowToSave struct {
		key  string
		cols map[column][]version
	}
	var rows []rowToSave
	t.rows.Range(func(key string, r *row) bool {
		r.mu.Lock()
		cols := make(map[column][]version, len(r.cols))
		for col, versions := range r.cols {
			cols[col] = append([]version(nil), versions...)
		}
		r.mu.Unlock()
		rows = append(rows, rowToSave{key: key, cols: cols})
		return true
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(snapshotVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(rows))); err != nil {
		return err
	}

	for _, r := range rows {
		if err := writeBytes(bw, r.key); err != nil {
			return err
		}

		cols := make([]column, 0, len(r.cols))
		for col := range r.cols {
			cols = append(cols, col)
		}
		sort.Slice(cols, func(i, j int) bool {
			if cols[i].family != cols[j].family {
				return cols[i].family < cols[j].family
			}
			return cols[i].qualifier < cols[j].qualifier
		})

		if err := binary.Write(bw, binary.LittleEndian, uint32(len(cols))); err != nil {
			return err
		}
		for _, col := range cols {
			if err := writeBytes(bw, col.family); err != nil {
				return err
			}
			if err := writeBytes(bw, col.qualifier); err != nil {
				return err
			}

			versions := r.cols[col]
			if err := binary.Write(bw, binary.LittleEndian, uint32(len(versions))); err != nil {
				return err
			}
			for _, v := range versions {
				if err := binary.Write(bw, binary.LittleEndian, v.ts); err != nil {
					return err
				}
				if err := writeBytes(bw, string(v.value)); err != nil {
					return err
				}
			}
		}
	}

	// Flush buffer to ensure all data is written
	return bw.Flush()
}

// Load replaces the content of the table with a snapshot written by Save.
// On error the content of the table is left unchanged.
//
// Thread-safety: This function is not thread-safe and should not be called concurrently
func (t *Table) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, bufferSize)

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var formatVersion uint8
	if err := binary.Read(br, binary.LittleEndian, &formatVersion); err != nil {
		return err
	}
	if int(formatVersion) != snapshotVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", formatVersion, snapshotVersion)
	}

	var rowCount uint64
	if err := binary.Read(br, binary.LittleEndian, &rowCount); err != nil {
		return err
	}

	rows := xsync.NewMapOf[string, *row]()
	for i := uint64(0); i < rowCount; i++ {
		key, err := readBytes(br)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}

		var colCount uint32
		if err := binary.Read(br, binary.LittleEndian, &colCount); err != nil {
			return err
		}

		rw := newRow()
		for j := uint32(0); j < colCount; j++ {
			family, err := readBytes(br)
			if err != nil {
				return err
			}
			qualifier, err := readBytes(br)
			if err != nil {
				return err
			}

			var versionCount uint32
			if err := binary.Read(br, binary.LittleEndian, &versionCount); err != nil {
				return err
			}
			versions := make([]version, 0, versionCount)
			for k := uint32(0); k < versionCount; k++ {
				var ts int64
				if err := binary.Read(br, binary.LittleEndian, &ts); err != nil {
					return err
				}
				value, err := readBytes(br)
				if err != nil {
					return err
				}
				versions = append(versions, version{ts: ts, value: value})
			}
			rw.cols[column{family: string(family), qualifier: string(qualifier)}] = versions
		}
		rows.Store(string(key), rw)
	}

	t.rows = rows
	return nil
}

// writeBytes writes a length prefixed byte string
func writeBytes(bw *bufio.Writer, s string) error {
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := bw.WriteString(s)
	return err
}

// readBytes reads a length prefixed byte string
func readBytes(br *bufio.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(br, b); err != nil {
		return nil, err
	}
	return b, nil
}
