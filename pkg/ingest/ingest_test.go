package ingest

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
	"unicode/utf8"

	"ai-chat-gateway/internal/entity"
	"ai-chat-gateway/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestPipeline(maxChars int) *Pipeline {
	return NewPipeline(maxChars, logger.NewNopLogger())
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindText, DetectKind("notes.md"))
	assert.Equal(t, KindText, DetectKind("data.CSV"))
	assert.Equal(t, KindStructured, DetectKind("config.yaml"))
	assert.Equal(t, KindStructured, DetectKind("stack.yml"))
	assert.Equal(t, KindPDF, DetectKind("report.pdf"))
	assert.Equal(t, KindDocument, DetectKind("letter.docx"))
	assert.Equal(t, KindSpreadsheet, DetectKind("sheet.xlsx"))
	assert.Equal(t, KindImage, DetectKind("photo.JPG"))
	assert.Equal(t, KindUnknown, DetectKind("archive.tar.gz"))
	assert.Equal(t, KindUnknown, DetectKind("noextension"))
}

func TestIngestPlainText(t *testing.T) {
	p := newTestPipeline(4000)
	got := p.Ingest([]byte("hello world"), "note.txt")

	assert.Equal(t, entity.IngestStatusOK, got.Status)
	assert.Equal(t, "hello world", got.Text)
	assert.Equal(t, string(KindText), got.Kind)
}

func TestIngestTruncatesAtCeiling(t *testing.T) {
	const ceiling = 100
	p := newTestPipeline(ceiling)

	got := p.Ingest([]byte(strings.Repeat("a", ceiling*3)), "big.txt")

	assert.Equal(t, entity.IngestStatusTruncated, got.Status)
	assert.Len(t, got.Text, ceiling, "truncated text must be exactly the ceiling, never longer")
}

func TestIngestTruncatesMultibyteOnRuneBoundary(t *testing.T) {
	const ceiling = 100
	p := newTestPipeline(ceiling)

	// 3-byte runes: a byte-indexed cut would split one apart.
	got := p.Ingest([]byte(strings.Repeat("€", ceiling*2)), "euros.txt")

	assert.Equal(t, entity.IngestStatusTruncated, got.Status)
	assert.True(t, utf8.ValidString(got.Text), "truncation must not split a rune")
	assert.Equal(t, ceiling, utf8.RuneCountInString(got.Text), "the ceiling counts characters, not bytes")
}

func TestIngestAtExactCeilingIsNotTruncated(t *testing.T) {
	const ceiling = 100
	p := newTestPipeline(ceiling)

	got := p.Ingest([]byte(strings.Repeat("a", ceiling)), "edge.txt")
	assert.Equal(t, entity.IngestStatusOK, got.Status)
}

func TestIngestYAMLMappingSummary(t *testing.T) {
	p := newTestPipeline(4000)
	doc := "service: gateway\nreplicas: 3\nports:\n  - 8080\n  - 8443\n"

	got := p.Ingest([]byte(doc), "deploy.yaml")

	require.Equal(t, entity.IngestStatusOK, got.Status)
	assert.Equal(t, string(KindStructured), got.Kind)
	assert.Contains(t, got.Text, "YAML mapping with 3 top-level keys: ports, replicas, service")
	assert.Contains(t, got.Text, "replicas: 3")
}

func TestIngestYAMLSequenceSummary(t *testing.T) {
	p := newTestPipeline(4000)

	got := p.Ingest([]byte("- one\n- two\n"), "list.yml")

	require.Equal(t, entity.IngestStatusOK, got.Status)
	assert.Contains(t, got.Text, "YAML sequence with 2 items")
}

func TestIngestInvalidYAMLFallsBackToPlainText(t *testing.T) {
	p := newTestPipeline(4000)

	got := p.Ingest([]byte("key: [unterminated"), "broken.yaml")

	require.Equal(t, entity.IngestStatusOK, got.Status)
	assert.Equal(t, "key: [unterminated", got.Text)
}

func TestIngestUnsupportedKind(t *testing.T) {
	p := newTestPipeline(4000)
	got := p.Ingest([]byte{0x1f, 0x8b}, "blob.bin")

	assert.Equal(t, entity.IngestStatusUnsupported, got.Status)
	assert.Empty(t, got.Text)
}

func TestIngestBinaryTextFails(t *testing.T) {
	p := newTestPipeline(4000)
	got := p.Ingest([]byte{0xff, 0xfe, 0x00, 0x01}, "weird.txt")

	assert.Equal(t, entity.IngestStatusFailed, got.Status)
	assert.Empty(t, got.Text)
}

func TestIngestCorruptPDFFailsGracefully(t *testing.T) {
	p := newTestPipeline(4000)
	got := p.Ingest([]byte("definitely not a pdf"), "broken.pdf")

	assert.Equal(t, entity.IngestStatusFailed, got.Status)
}

func TestIngestDocx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t> paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	p := newTestPipeline(4000)
	got := p.Ingest(buf.Bytes(), "letter.docx")

	require.Equal(t, entity.IngestStatusOK, got.Status)
	assert.Contains(t, got.Text, "First paragraph.")
	assert.Contains(t, got.Text, "Second paragraph.")
}

func TestIngestSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "count"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "widgets"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 12))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	p := newTestPipeline(4000)
	got := p.Ingest(buf.Bytes(), "inventory.xlsx")

	require.Equal(t, entity.IngestStatusOK, got.Status)
	assert.Contains(t, got.Text, "--- Sheet: Sheet1 ---")
	assert.Contains(t, got.Text, "name\tcount")
	assert.Contains(t, got.Text, "widgets\t12")
}

func TestIngestImageMetadata(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 16))))

	p := newTestPipeline(4000)
	got := p.Ingest(buf.Bytes(), "pic.png")

	require.Equal(t, entity.IngestStatusOK, got.Status)
	assert.Contains(t, got.Text, "Format: png")
	assert.Contains(t, got.Text, "32x16 pixels")
}

func TestPromptBlockLabelsDegradedResults(t *testing.T) {
	ok := PromptBlock(entity.IngestedFile{Name: "a.txt", Status: entity.IngestStatusOK, Text: "body"})
	assert.Contains(t, ok, "[Uploaded file: a.txt]")
	assert.Contains(t, ok, "body")

	failed := PromptBlock(entity.IngestedFile{Name: "b.pdf", Status: entity.IngestStatusFailed})
	assert.Contains(t, failed, "could not be read")

	unsupported := PromptBlock(entity.IngestedFile{Name: "c.bin", Status: entity.IngestStatusUnsupported})
	assert.Contains(t, unsupported, "unsupported type")
}
