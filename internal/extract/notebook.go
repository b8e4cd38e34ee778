package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/quantmind-br/gitingest-go/internal/domain"
)

// textLines is a notebook source field, tolerated as either a single string
// or a list of line strings.
type textLines []string

func (t *textLines) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

func (t textLines) String() string {
	return strings.Join(t, "")
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   textLines       `json:"source"`
	Input    textLines       `json:"input"` // nbformat 3 code cells
	Outputs  []notebookOut   `json:"outputs"`
}

type notebookOut struct {
	OutputType string               `json:"output_type"`
	Text       textLines            `json:"text"`
	Data       map[string]textLines `json:"data"`
	Ename      string               `json:"ename"`
	Evalue     string               `json:"evalue"`
}

type notebookWorksheet struct {
	Cells []notebookCell `json:"cells"`
}

type notebookDoc struct {
	Cells      []notebookCell      `json:"cells"`
	Worksheets []notebookWorksheet `json:"worksheets"`
	Nbformat   int                 `json:"nbformat"`
}

// renderNotebook converts an .ipynb file into a python-script-like text:
// markdown and raw cells as triple-quoted blocks, code cells literal, and
// cell outputs as trailing comment lines when enabled.
func (e *Extractor) renderNotebook(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.NotebookError{Path: path, Reason: err.Error()}
	}

	var doc notebookDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", &domain.NotebookError{Path: path, Reason: "invalid JSON: " + err.Error()}
	}

	cells := doc.Cells
	if len(cells) == 0 && len(doc.Worksheets) > 0 {
		// The deprecated nbformat 3 container nests cells in worksheets.
		if len(doc.Worksheets) > 1 && e.logger != nil {
			e.logger.Warn().Str("path", path).Int("worksheets", len(doc.Worksheets)).
				Msg("Combining multiple notebook worksheets in cell order")
		}
		for _, ws := range doc.Worksheets {
			cells = append(cells, ws.Cells...)
		}
	}

	var blocks []string
	for _, cell := range cells {
		block, err := e.renderCell(path, cell)
		if err != nil {
			return "", err
		}
		if block != "" {
			blocks = append(blocks, block)
		}
	}

	return strings.Join(blocks, "\n\n") + "\n", nil
}

func (e *Extractor) renderCell(path string, cell notebookCell) (string, error) {
	source := cell.Source.String()
	if source == "" {
		source = cell.Input.String()
	}

	switch cell.CellType {
	case "markdown", "raw":
		return `"""` + "\n" + source + "\n" + `"""`, nil
	case "code":
		block := source
		if e.includeOutputs {
			if rendered := renderOutputs(cell.Outputs); rendered != "" {
				block += "\n" + rendered
			}
		}
		return block, nil
	default:
		return "", &domain.NotebookError{Path: path, Reason: "unknown cell type: " + cell.CellType}
	}
}

// renderOutputs turns cell outputs into comment lines: stream text, the
// text/plain form of results and display data, and formatted errors.
func renderOutputs(outputs []notebookOut) string {
	var lines []string
	for _, out := range outputs {
		var text string
		switch out.OutputType {
		case "stream":
			text = out.Text.String()
		case "execute_result", "display_data", "pyout":
			if plain, ok := out.Data["text/plain"]; ok {
				text = plain.String()
			} else {
				text = out.Text.String()
			}
		case "error", "pyerr":
			text = fmt.Sprintf("%s: %s", out.Ename, out.Evalue)
		}
		if text == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			lines = append(lines, "# "+line)
		}
	}
	return strings.Join(lines, "\n")
}
