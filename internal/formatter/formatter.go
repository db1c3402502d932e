// package formatter renders sync reports and cluster listings for CLI output
// (JSON, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/desertthunder/facesync/internal/tasks"
)

// reportJSON is the serialized shape of a sync report; errors become strings.
type reportJSON struct {
	TotalFiles  int               `json:"total_files"`
	SyncedFiles int               `json:"synced_files"`
	SyncedFaces int               `json:"synced_faces"`
	Clusters    int               `json:"clusters"`
	FileErrors  map[string]string `json:"file_errors,omitempty"`
	FatalError  string            `json:"fatal_error,omitempty"`
}

// ReportToJSON converts a sync report to JSON, optionally indented.
func ReportToJSON(report *tasks.SyncReport, pretty bool) ([]byte, error) {
	out := reportJSON{
		TotalFiles:  report.TotalFiles,
		SyncedFiles: report.SyncedFiles,
		SyncedFaces: report.SyncedFaces,
		Clusters:    report.Clusters,
	}
	if len(report.FileErrors) > 0 {
		out.FileErrors = make(map[string]string, len(report.FileErrors))
		for id, err := range report.FileErrors {
			out.FileErrors[id] = err.Error()
		}
	}
	if report.FatalErr != nil {
		out.FatalError = report.FatalErr.Error()
	}

	if pretty {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

// ReportToMarkdown converts a sync report to a Markdown summary.
func ReportToMarkdown(report *tasks.SyncReport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Sync Report\n\n")
	buf.WriteString(fmt.Sprintf("**Files**: %d/%d synced\n", report.SyncedFiles, report.TotalFiles))
	buf.WriteString(fmt.Sprintf("**Faces**: %d\n", report.SyncedFaces))
	buf.WriteString(fmt.Sprintf("**Clusters**: %d\n\n", report.Clusters))

	if report.FatalErr != nil {
		buf.WriteString(fmt.Sprintf("**Fatal error**: %s\n\n", report.FatalErr))
	}

	if len(report.FileErrors) > 0 {
		buf.WriteString("## Failed Files\n\n")
		for _, id := range sortedKeys(report.FileErrors) {
			buf.WriteString(fmt.Sprintf("- %s: %s\n", id, report.FileErrors[id]))
		}
	}

	return buf.Bytes(), nil
}

// ReportToText converts a sync report to plain text.
func ReportToText(report *tasks.SyncReport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Synced: %d/%d files, %d faces, %d clusters\n",
		report.SyncedFiles, report.TotalFiles, report.SyncedFaces, report.Clusters))

	if report.FatalErr != nil {
		buf.WriteString(fmt.Sprintf("Fatal: %s\n", report.FatalErr))
	}

	for _, id := range sortedKeys(report.FileErrors) {
		buf.WriteString(fmt.Sprintf("Failed: %s (%s)\n", id, report.FileErrors[id]))
	}

	return buf.Bytes(), nil
}

// ClustersToText renders cluster membership as plain text, largest first.
func ClustersToText(clusters map[string][]string) []byte {
	var buf bytes.Buffer

	ids := make([]string, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(clusters[ids[i]]) != len(clusters[ids[j]]) {
			return len(clusters[ids[i]]) > len(clusters[ids[j]])
		}
		return ids[i] < ids[j]
	})

	buf.WriteString(fmt.Sprintf("Clusters: %d\n", len(ids)))
	for i, id := range ids {
		buf.WriteString(fmt.Sprintf("%d. %s (%d faces)\n", i+1, id, len(clusters[id])))
	}

	return buf.Bytes()
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
