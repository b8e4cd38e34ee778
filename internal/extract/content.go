package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// sampleSize is how much of a file is probed before committing to a decode
// strategy.
const sampleSize = 1024

var errNoEncoding = errors.New("no suitable encoding")

// Placeholder bodies for files that carry no renderable text.
const (
	EmptyFilePlaceholder  = "[Empty file]"
	BinaryFilePlaceholder = "[Binary file]"
)

// Extractor decides the textual representation of regular files: plain
// decode, binary placeholder, or notebook conversion.
type Extractor struct {
	includeOutputs bool
	logger         *utils.Logger
}

// ExtractorOptions contains options for creating an Extractor.
type ExtractorOptions struct {
	// IncludeNotebookOutputs appends cell outputs to converted notebooks.
	IncludeNotebookOutputs bool
	Logger                 *utils.Logger
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ExtractorOptions) *Extractor {
	return &Extractor{
		includeOutputs: opts.IncludeNotebookOutputs,
		logger:         opts.Logger,
	}
}

// Extract returns the textual representation of the file at path. On failure
// the returned string is a placeholder body and the error is a per-file
// typed error; callers decide whether the degraded body is acceptable.
func (e *Extractor) Extract(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".ipynb") {
		text, err := e.renderNotebook(path)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn().Err(err).Str("path", path).Msg("Notebook conversion failed")
			}
			return fmt.Sprintf("[Error processing notebook: %v]", err), err
		}
		return text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		cerr := &domain.ContentError{Path: path, Err: err}
		if e.logger != nil {
			e.logger.Warn().Err(cerr).Msg("Content extraction failed")
		}
		return fmt.Sprintf("[Error reading file: %v]", err), cerr
	}
	if len(data) == 0 {
		return EmptyFilePlaceholder, nil
	}

	sample := data
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	if !looksTextual(sample) {
		return BinaryFilePlaceholder, nil
	}

	for _, candidate := range encodingCandidates() {
		if _, err := candidate.decode(sample); err != nil {
			continue
		}
		text, err := candidate.decode(data)
		if err != nil {
			continue
		}
		return text, nil
	}

	cerr := &domain.ContentError{Path: path, Err: errNoEncoding}
	if e.logger != nil {
		e.logger.Warn().Err(cerr).Msg("Content extraction failed")
	}
	return fmt.Sprintf("[Error decoding file: no suitable encoding for %s]", filepath.Base(path)), cerr
}

// candidateEncoding is one entry of the fixed, platform-ordered decode list.
type candidateEncoding struct {
	name   string
	decode func([]byte) (string, error)
}

// encodingCandidates returns the decode attempts in order: the platform's
// preferred encoding, UTF-8, UTF-16 (BOM), UTF-16LE, UTF-8 with BOM,
// Latin-1, and Windows code pages on Windows.
func encodingCandidates() []candidateEncoding {
	candidates := []candidateEncoding{
		{"utf-8", decodeUTF8},
		{"utf-16", decoderFunc(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM))},
		{"utf-16-le", decodeUTF16LE},
		{"utf-8-sig", decoderFunc(unicode.UTF8BOM)},
		{"latin-1", decoderFunc(charmap.ISO8859_1)},
	}
	if runtime.GOOS == "windows" {
		candidates = append(candidates,
			candidateEncoding{"windows-1252", decoderFunc(charmap.Windows1252)},
			candidateEncoding{"windows-1251", decoderFunc(charmap.Windows1251)},
		)
	}
	return candidates
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) && !validUTF8Prefix(data) {
		return "", fmt.Errorf("invalid utf-8")
	}
	return string(data), nil
}

func decodeUTF16LE(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", fmt.Errorf("odd utf-16 length")
	}
	return decoderFunc(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM))(data)
}

func decoderFunc(enc encoding.Encoding) func([]byte) (string, error) {
	return func(data []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// looksTextual is the byte-level binary heuristic: NUL bytes or invalid
// UTF-8 beyond a possibly truncated trailing rune classify the sample as
// binary.
func looksTextual(sample []byte) bool {
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	return utf8.Valid(sample) || validUTF8Prefix(sample)
}

// validUTF8Prefix tolerates a multi-byte rune cut off at the sample
// boundary.
func validUTF8Prefix(sample []byte) bool {
	for trim := 1; trim <= 3 && trim < len(sample); trim++ {
		if utf8.Valid(sample[:len(sample)-trim]) {
			return true
		}
	}
	return false
}
