// Command seeder loads JSON Lines files into the source tables of a badger store.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log"
	"log/slog"
	"os"

	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/providers"
	"github.com/poiesic/enrichit/storage"
	"github.com/poiesic/enrichit/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "seeder",
		Usage:     "Load JSON Lines source rows into a badger store",
		ArgsUsage: "FILE.jsonl...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "Path to BadgerDB database directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "table",
				Aliases:  []string{"t"},
				Usage:    "Source table (provider name) to load into",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "id-column",
				Usage: "Id column of the rows (defaults to the provider's)",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Rows written per transaction",
				Value: 500,
			},
		},
		Action: seed,
	}
}

func seed(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	if c.Int("batch-size") < 1 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	table := c.String("table")
	idColumn := c.String("id-column")
	if idColumn == "" {
		d, err := providers.Builtin().Lookup(table)
		if err != nil {
			return fmt.Errorf("%w: pass --id-column for custom tables", err)
		}
		idColumn = d.IDColumn
	}

	store, err := badger.NewStore(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	total := 0
	for _, name := range c.Args().Slice() {
		rows, err := rowsFromFile(name)
		if err != nil {
			return err
		}
		n, err := ingestBatched(c.Context, store, table, idColumn, rows, c.Int("batch-size"))
		total += n
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		slog.Info("loaded file", "file", name, "table", table, "rows", n)
	}
	fmt.Fprintf(c.App.Writer, "Loaded %d rows into %s\n", total, table)
	return nil
}

// rowsFromFile returns an iterator over the JSON objects of a JSON Lines file.
// Blank lines are skipped.
func rowsFromFile(filename string) (iter.Seq2[core.RawRow, error], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(core.RawRow, error) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := bytes.TrimSpace(scanner.Bytes())
			if len(raw) == 0 {
				continue
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var row core.RawRow
			if err := dec.Decode(&row); err != nil {
				yield(nil, fmt.Errorf("line %d: %w", line, err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}, nil
}

// ingestBatched writes rows in batches and returns how many were stored.
func ingestBatched(ctx context.Context, store storage.SourceWriter, table, idColumn string, rows iter.Seq2[core.RawRow, error], batchSize int) (int, error) {
	batch := make([]core.RawRow, 0, batchSize)
	written := 0

	flush := func() error {
		n, err := store.PutSourceRows(ctx, table, idColumn, batch)
		written += n
		batch = batch[:0]
		return err
	}

	for row, err := range rows {
		if err != nil {
			return written, err
		}
		batch = append(batch, row)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}

	// Process any remaining rows
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return written, err
		}
	}
	return written, nil
}
