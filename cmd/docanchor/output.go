package main

import (
	"fmt"
	"os"
	"time"

	"docanchor/internal/api"
	"docanchor/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeDocumentList(docs []api.DocumentSummary) error {
	for _, doc := range docs {
		if err := writePlain("%s\n", formatDocumentLine(doc)); err != nil {
			return err
		}
	}
	return nil
}

func formatDocumentLine(doc api.DocumentSummary) string {
	var seq uint64
	switch {
	case doc.AnchorSequenceNumber != nil:
		seq = *doc.AnchorSequenceNumber
	case doc.RevokeSequenceNumber != nil:
		seq = *doc.RevokeSequenceNumber
	}
	return fmt.Sprintf("%s [%s] %s %s#%d %s", doc.ID, doc.Kind, doc.DocumentHash, doc.TopicID, seq, formatTime(doc.CreatedAt))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
