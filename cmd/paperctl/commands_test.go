package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/paperpulse/internal/bootstrap"
	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/infrastructure/recognizer/local"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestProcessFilePrintsRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.txt")
	if err := os.WriteFile(path, []byte("Team offsite\nFriday"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var out bytes.Buffer
	err := processFile(context.Background(), bootstrap.NewProcessor(local.New(), nil, nil), path, &out)
	if err != nil {
		t.Fatalf("processFile() error = %v", err)
	}
	var meta domain.DocumentMetadata
	if err := json.Unmarshal(out.Bytes(), &meta); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if meta.FileName != "memo.txt" || meta.DocumentType != domain.TypeGeneral || meta.ExtractedMetadata["Page1"] != "Team offsite Friday" {
		t.Fatalf("unexpected record %+v", meta)
	}
}

func TestProcessFileReportsFailureWithRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var out bytes.Buffer
	err := processFile(context.Background(), bootstrap.NewProcessor(local.New(), nil, nil), path, &out)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(out.String(), `"status": "Error"`) {
		t.Fatalf("expected error record in output, got %q", out.String())
	}
}

func TestProcessFileMissingPath(t *testing.T) {
	err := processFile(context.Background(), bootstrap.NewProcessor(local.New(), nil, nil), filepath.Join(t.TempDir(), "nope.pdf"), &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
