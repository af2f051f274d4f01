// extract runs documents through an extraction provider and prints the
// resulting fields as JSON. No database required.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/llm"
	"github.com/billingx/billing-extractor/internal/llm/gemini"
	"github.com/billingx/billing-extractor/internal/llm/mock"
	"github.com/billingx/billing-extractor/internal/llm/openai"
	"github.com/billingx/billing-extractor/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		os.Exit(1)
	}
}

type extractionOutput struct {
	FileName string             `json:"fileName"`
	Fields   *llm.InvoiceFields `json:"fields,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func run() error {
	_ = godotenv.Load()

	provider := flag.String("provider", "", "extraction provider (mock, openai, gemini); defaults to LLM_PROVIDER")
	flag.Parse()
	if flag.NArg() == 0 {
		return fmt.Errorf("usage: extract [-provider mock|openai|gemini] <file> [file...]")
	}

	cfg := common.LoadConfig()
	if *provider != "" {
		cfg.LLM.Provider = *provider
	}
	logging.Init("extract", cfg.Server.LogFile)
	logger := logging.Base()

	var files []llm.File
	for _, path := range flag.Args() {
		if !constants.IsAllowedFile(path) {
			return fmt.Errorf("invalid file type: %s", filepath.Base(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(data) > constants.MaxFileSizeBytes {
			return fmt.Errorf("file %s exceeds the %d byte limit", filepath.Base(path), constants.MaxFileSizeBytes)
		}
		files = append(files, llm.File{Data: data, FileName: filepath.Base(path)})
	}

	var (
		extractor llm.Extractor
		err       error
	)
	switch cfg.LLM.Provider {
	case "openai":
		extractor, err = openai.New(cfg.LLM, logger)
	case "gemini":
		extractor, err = gemini.New(cfg.LLM, logger)
	case "mock":
		extractor = mock.New(logger)
	default:
		return fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	if cfg.LLM.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.LLM.Timeout)
		defer cancel()
	}

	extractions := llm.ExtractBatch(ctx, extractor, files)

	out := make([]extractionOutput, 0, len(extractions))
	failed := 0
	for _, ex := range extractions {
		entry := extractionOutput{FileName: ex.FileName}
		if ex.Err != nil {
			entry.Error = ex.Err.Error()
			failed++
		} else {
			fields := ex.Fields
			entry.Fields = &fields
		}
		out = append(out, entry)
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))

	if failed == len(extractions) {
		return fmt.Errorf("all %d extraction(s) failed", failed)
	}
	return nil
}
