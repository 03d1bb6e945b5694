package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// wantJSON reports whether the command should print JSON instead of a table.
func wantJSON(c *cli.Context) bool {
	return c.Bool("json") || c.String("jq") != ""
}

// outputJSON writes v as indented JSON to stdout, filtered through --jq when set.
func outputJSON(c *cli.Context, v interface{}) error {
	return writeJSON(os.Stdout, v, c.String("jq"))
}

// writeJSON encodes v to w. With a non-empty filter, every result the jq
// program yields is written on its own.
func writeJSON(w io.Writer, v interface{}, filter string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if filter == "" {
		return enc.Encode(v)
	}

	code, err := compileJQ(filter)
	if err != nil {
		return err
	}

	// gojq only walks plain maps and slices, so round-trip through JSON first.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("failed to decode output: %w", err)
	}

	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq filter %q failed: %w", filter, err)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
}

func compileJQ(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// cliLogger logs errors only, to stderr, so command output stays clean.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func valueOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
