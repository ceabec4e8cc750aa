package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Position is a location in a book file.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// ParseError represents a malformed book file.
type ParseError struct {
	Pos        Position
	Message    string
	Source     []byte // Raw file contents, for context when rendering
	Underlying error
}

func (e *ParseError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = fmt.Sprintf("line %d", e.Pos.Line)
	}

	return fmt.Sprintf("%s: %s", location, e.Message)
}

func (e *ParseError) GetPosition() Position {
	return e.Pos
}

func (e *ParseError) GetSource() []byte {
	return e.Source
}

func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// newParseError creates a parse error from a JSON decoding error. The byte
// offset reported by encoding/json is turned into a line and column.
func newParseError(filename string, data []byte, err error) *ParseError {
	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}

	pos := Position{Filename: filename, Line: 1, Column: 1}
	if offset >= 0 {
		pos.Line, pos.Column = lineColumn(data, offset)
	}

	return &ParseError{
		Pos:        pos,
		Message:    strings.TrimPrefix(err.Error(), "json: "),
		Source:     data,
		Underlying: err,
	}
}

func lineColumn(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line := bytes.Count(before, []byte{'\n'}) + 1
	column := int(offset) - bytes.LastIndexByte(before, '\n')
	return line, column
}

// DuplicateError is returned when two books define the same report or card.
type DuplicateError struct {
	Kind     string // "inventory report", "issued report" or "stock card"
	ID       string
	Filename string
	Previous string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: duplicate %s %s (first defined in %s)", e.Filename, e.Kind, e.ID, e.Previous)
}
