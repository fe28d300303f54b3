package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File identifies one stored analysis artifact and the link shared with the
// user.
type File struct {
	Name string
	Link string
}

// Store persists generated analyses and reports and hands back shareable
// links. The cloud-drive implementation lives behind this interface; the
// local store keeps development and tests self-contained.
type Store interface {
	SaveAnalysis(ctx context.Context, batchID, analysisType, title string, content []byte) (File, error)
	SaveFinalReport(ctx context.Context, batchID string, content []byte) (File, error)
	SaveMetadata(ctx context.Context, batchID string, metadata any) error
}

// LocalStore writes artifacts under root/batches/<batchID>/, mirroring the
// summaries/reports/final-report folder structure of the drive layout.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	if strings.TrimSpace(root) == "" {
		root = "docs"
	}
	return &LocalStore{root: root}
}

func (s *LocalStore) SaveAnalysis(
	_ context.Context,
	batchID, analysisType, title string,
	content []byte,
) (File, error) {
	folder := "reports"
	if analysisType == "summary" {
		folder = "summaries"
	}
	name := sanitizeFileName(title) + ".md"
	path := filepath.Join(s.root, "batches", batchID, folder, name)
	if err := writeFile(path, content); err != nil {
		return File{}, err
	}
	return File{Name: name, Link: path}, nil
}

func (s *LocalStore) SaveFinalReport(_ context.Context, batchID string, content []byte) (File, error) {
	path := filepath.Join(s.root, "batches", batchID, "final_report.md")
	if err := writeFile(path, content); err != nil {
		return File{}, err
	}
	return File{Name: "final_report.md", Link: path}, nil
}

func (s *LocalStore) SaveMetadata(_ context.Context, batchID string, metadata any) error {
	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch metadata: %w", err)
	}
	return writeFile(filepath.Join(s.root, "batches", batchID, "metadata.json"), encoded)
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

func sanitizeFileName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "analysis"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")
	cleaned := replacer.Replace(title)
	cleaned = strings.Join(strings.Fields(cleaned), "_")
	if len(cleaned) > 80 {
		cleaned = cleaned[:80]
	}
	return cleaned
}
