// internal/output/export.go
//
// Saves a generated artifact to disk as three files under a per-session
// directory: the one-line command, the structured record, and the
// Markdown document. The document carries a YAML frontmatter block and
// the record carries a _specsmith metadata object, so an exported
// artifact can be traced back to the session that produced it.

package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a
	// YAML fence.
	ErrMissingFrontMatter = errors.New("output: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be
	// parsed.
	ErrMalformedFrontMatter = errors.New("output: malformed frontmatter")
)

const (
	commandFile    = "command.txt"
	structuredFile = "structured.json"
	documentFile   = "document.md"

	timeLayout = "2006-01-02T15:04:05Z07:00"
)

// ExportMeta identifies the session an exported artifact came from.
type ExportMeta struct {
	SessionID   string
	GeneratedAt time.Time
	Checksum    string
}

// Exporter writes artifacts below a root output directory.
type Exporter struct {
	root string
}

// NewExporter builds an exporter rooted at dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{root: dir}
}

// Dir is the directory a session's artifact exports to.
func (e *Exporter) Dir(sessionID string) string {
	return filepath.Join(e.root, shortID(sessionID))
}

// Export writes the three artifact surfaces and returns the directory
// they landed in.
func (e *Exporter) Export(sessionID string, artifact Artifact) (string, error) {
	dir := e.Dir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: ensure export dir: %w", err)
	}

	structured, err := e.encodeStructured(sessionID, artifact)
	if err != nil {
		return "", err
	}
	document, err := e.encodeDocument(sessionID, artifact)
	if err != nil {
		return "", err
	}

	files := map[string][]byte{
		commandFile:    []byte(artifact.SummaryText + "\n"),
		structuredFile: structured,
		documentFile:   document,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return "", fmt.Errorf("output: write %s: %w", name, err)
		}
	}
	return dir, nil
}

func (e *Exporter) encodeDocument(sessionID string, artifact Artifact) ([]byte, error) {
	body := []byte(artifact.FormattedDocument)
	meta := ExportMeta{
		SessionID:   sessionID,
		GeneratedAt: artifact.GeneratedAt,
		Checksum:    docChecksum(body),
	}
	return writeFrontMatter(meta, body)
}

func (e *Exporter) encodeStructured(sessionID string, artifact Artifact) ([]byte, error) {
	payload := map[string]any{}
	raw, err := json.Marshal(artifact.StructuredData)
	if err != nil {
		return nil, fmt.Errorf("output: encode structured data: %w", err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("output: encode structured data: %w", err)
	}
	payload["_specsmith"] = map[string]any{
		"session":   sessionID,
		"generated": artifact.GeneratedAt.UTC().Format(timeLayout),
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("output: encode structured data: %w", err)
	}
	return append(encoded, '\n'), nil
}

// ReadDocument loads an exported document, splitting the frontmatter
// from the Markdown body and verifying the checksum.
func (e *Exporter) ReadDocument(sessionID string) (ExportMeta, []byte, error) {
	content, err := os.ReadFile(filepath.Join(e.Dir(sessionID), documentFile))
	if err != nil {
		return ExportMeta{}, nil, fmt.Errorf("output: read exported document: %w", err)
	}
	meta, body, err := parseFrontMatter(content)
	if err != nil {
		return ExportMeta{}, nil, err
	}
	if meta.Checksum != "" && meta.Checksum != docChecksum(body) {
		return ExportMeta{}, nil, fmt.Errorf("output: exported document checksum mismatch")
	}
	return meta, body, nil
}

type exportEnvelope struct {
	Specsmith exportFields `yaml:"specsmith"`
}

type exportFields struct {
	Session   string `yaml:"session"`
	Generated string `yaml:"generated"`
	Checksum  string `yaml:"checksum,omitempty"`
}

func writeFrontMatter(meta ExportMeta, body []byte) ([]byte, error) {
	if meta.SessionID == "" {
		return nil, fmt.Errorf("output: export metadata missing session id")
	}
	envelope := exportEnvelope{Specsmith: exportFields{
		Session:   meta.SessionID,
		Generated: meta.GeneratedAt.UTC().Format(timeLayout),
		Checksum:  meta.Checksum,
	}}
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("output: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

func parseFrontMatter(content []byte) (ExportMeta, []byte, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return ExportMeta{}, nil, ErrMissingFrontMatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return ExportMeta{}, nil, ErrMalformedFrontMatter
	}
	var envelope exportEnvelope
	if err := yaml.Unmarshal(parts[0], &envelope); err != nil {
		return ExportMeta{}, nil, fmt.Errorf("output: parse frontmatter: %w", err)
	}
	fields := envelope.Specsmith
	if fields.Session == "" || fields.Generated == "" {
		return ExportMeta{}, nil, ErrMalformedFrontMatter
	}
	generated, err := time.Parse(timeLayout, fields.Generated)
	if err != nil {
		return ExportMeta{}, nil, fmt.Errorf("output: parse generated timestamp: %w", err)
	}
	body := bytes.TrimPrefix(parts[1], []byte("\n"))
	return ExportMeta{
		SessionID:   fields.Session,
		GeneratedAt: generated.UTC(),
		Checksum:    fields.Checksum,
	}, body, nil
}

func docChecksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// shortID keeps export directory names readable for uuid session ids.
func shortID(sessionID string) string {
	id := strings.ReplaceAll(sessionID, string(filepath.Separator), "-")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
