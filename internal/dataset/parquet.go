package dataset

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// parallelism bounds parquet reader/writer goroutines. It is independent of
// the safe-parallelism cap used for CV/training workers (spec.md §5),
// since marshalling is I/O-bound rather than a memory-heavy worker fork.
const parallelism = 4

// WritePartition persists rows as a single parquet file, overwriting any
// existing file at path.
func WritePartition(path string, rows []Row) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("dataset: open %s for write: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(Row), parallelism)
	if err != nil {
		return fmt.Errorf("dataset: new parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = 0 // UNCOMPRESSED; reproducibility over size for a learning pipeline

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("dataset: write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("dataset: finalize %s: %w", path, err)
	}
	return nil
}

// ReadPartition reads every row back from a parquet partition written by
// WritePartition.
func ReadPartition(path string) ([]Row, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s for read: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(Row), parallelism)
	if err != nil {
		return nil, fmt.Errorf("dataset: new parquet reader: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	out := make([]Row, 0, num)
	const batchSize = 1024
	for offset := 0; offset < num; offset += batchSize {
		remain := num - offset
		n := batchSize
		if remain < n {
			n = remain
		}
		batch := make([]Row, n)
		if err := pr.Read(&batch); err != nil {
			return nil, fmt.Errorf("dataset: read rows: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}
