// Package ingest converts uploaded files into bounded plain text suitable
// for inclusion in a model prompt. Extraction is best-effort: a broken or
// unknown attachment degrades to a labeled empty result and never fails
// the surrounding chat turn.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"ai-chat-gateway/internal/entity"
	"ai-chat-gateway/internal/pkg/logger"
)

// Kind is the detected file family an extractor handles.
type Kind string

const (
	KindText        Kind = "text"
	KindStructured  Kind = "structured"
	KindPDF         Kind = "pdf"
	KindDocument    Kind = "document"
	KindSpreadsheet Kind = "spreadsheet"
	KindImage       Kind = "image"
	KindUnknown     Kind = "unknown"
)

type extractorFunc func(data []byte) (string, error)

// Pipeline dispatches files by detected kind to a fixed extractor table.
type Pipeline struct {
	maxChars   int
	extractors map[Kind]extractorFunc
	logger     logger.ILogger
}

func NewPipeline(maxChars int, log logger.ILogger) *Pipeline {
	return &Pipeline{
		maxChars: maxChars,
		logger:   log,
		extractors: map[Kind]extractorFunc{
			KindText:        extractText,
			KindStructured:  extractYAML,
			KindPDF:         extractPDF,
			KindDocument:    extractDocx,
			KindSpreadsheet: extractSpreadsheet,
			KindImage:       extractImage,
		},
	}
}

var kindByExtension = map[string]Kind{
	".txt":  KindText,
	".json": KindText,
	".yaml": KindStructured,
	".yml":  KindStructured,
	".md":   KindText,
	".csv":  KindText,
	".log":  KindText,
	".pdf":  KindPDF,
	".docx": KindDocument,
	".xlsx": KindSpreadsheet,
	".xls":  KindSpreadsheet,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".webp": KindImage,
}

// DetectKind maps a declared filename to its extractor family.
func DetectKind(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if kind, ok := kindByExtension[ext]; ok {
		return kind
	}
	return KindUnknown
}

// Ingest extracts bounded text from one uploaded file. It never returns an
// error: unsupported kinds and extraction failures come back as labeled
// empty results, and text beyond the character ceiling is cut to exactly
// the ceiling with status "truncated".
func (p *Pipeline) Ingest(data []byte, declaredName string) entity.IngestedFile {
	kind := DetectKind(declaredName)
	result := entity.IngestedFile{
		Name: declaredName,
		Kind: string(kind),
	}

	extractor, ok := p.extractors[kind]
	if !ok {
		result.Status = entity.IngestStatusUnsupported
		return result
	}

	text, err := p.safeExtract(extractor, data)
	if err != nil {
		p.logger.Warn("INGEST", "Extraction failed", map[string]interface{}{
			"file":  declaredName,
			"kind":  kind,
			"error": err.Error(),
		})
		result.Status = entity.IngestStatusFailed
		return result
	}

	// The ceiling counts characters, not bytes; cutting runes apart would
	// put invalid UTF-8 into the prompt.
	if len(text) > p.maxChars {
		if runes := []rune(text); len(runes) > p.maxChars {
			result.Text = string(runes[:p.maxChars])
			result.Status = entity.IngestStatusTruncated
			return result
		}
	}
	result.Text = text
	result.Status = entity.IngestStatusOK
	return result
}

// safeExtract shields the pipeline from panicking parsers; malformed
// binary input is an expected condition here.
func (p *Pipeline) safeExtract(extractor extractorFunc, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return extractor(data)
}

// PromptBlock renders the ingested file the way the prompt embeds it. A
// degraded result still labels the attachment so the model knows one was
// sent.
func PromptBlock(file entity.IngestedFile) string {
	switch file.Status {
	case entity.IngestStatusOK:
		return fmt.Sprintf("\n\n[Uploaded file: %s]\n---\n%s\n---", file.Name, file.Text)
	case entity.IngestStatusTruncated:
		return fmt.Sprintf("\n\n[Uploaded file: %s]\n---\n%s\n... (truncated)\n---", file.Name, file.Text)
	case entity.IngestStatusUnsupported:
		return fmt.Sprintf("\n\n[Uploaded file: %s (unsupported type)]", file.Name)
	default:
		return fmt.Sprintf("\n\n[Uploaded file: %s (could not be read)]", file.Name)
	}
}
