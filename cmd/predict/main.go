package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danielpatrickdp/churn-service/internal/rpc"
)

// #region main

func main() {
	addr := flag.String("addr", envOr("GRPC_ADDR", "localhost:50051"), "prediction server address")
	file := flag.String("file", "-", "JSON record to classify, - for stdin")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	record, err := readRecord(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read record: %v\n", err)
		os.Exit(2)
	}

	client, err := rpc.NewClient(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	p, err := client.Predict(ctx, record)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s (label %d)\n", p.Status, p.Label)
}

// #endregion main

// #region helpers

func readRecord(path string) (map[string]any, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		r = fh
	}
	var record map[string]any
	if err := json.NewDecoder(r).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return record, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
