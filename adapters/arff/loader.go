// Package arff parses Attribute-Relation File Format text into dataset tables.
//
// Supported: @relation, @attribute with numeric/real/integer, string, date and
// nominal types, dense @data rows with '?' for missing values, quoted names and
// values, '%' comment lines. Sparse rows and relational attributes are rejected.
package arff

import (
	"bufio"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"divdataset/domain/dataset"
)

// LoadError is the single error type returned by the loader
type LoadError struct {
	Line int // 1-based, 0 when the error is not tied to a line
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error loading dataset: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("error loading dataset: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func lineErr(line int, format string, args ...interface{}) *LoadError {
	return &LoadError{Line: line, Err: fmt.Errorf(format, args...)}
}

// Load decodes content as UTF-8 and parses it
func Load(content []byte) (*dataset.Table, error) {
	if !utf8.Valid(content) {
		return nil, &LoadError{Err: fmt.Errorf("content is not valid UTF-8")}
	}
	return LoadString(string(content))
}

type section int

const (
	sectionStart section = iota
	sectionHeader
	sectionData
)

// LoadString parses ARFF text into a Table whose columns follow the attribute
// declarations and whose rows follow file order
func LoadString(text string) (*dataset.Table, error) {
	var (
		relation string
		attrs    []dataset.Attribute
		rows     [][]dataset.Value
		state    = sectionStart
		seen     = make(map[string]bool)
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}

		if state == sectionData {
			if strings.HasPrefix(line, "{") {
				return nil, lineErr(lineNo, "sparse data rows are not supported")
			}
			row, err := parseRow(line, attrs)
			if err != nil {
				return nil, &LoadError{Line: lineNo, Err: err}
			}
			rows = append(rows, row)
			continue
		}

		keyword, rest := splitKeyword(line)
		switch keyword {
		case "@relation":
			if state != sectionStart {
				return nil, lineErr(lineNo, "duplicate @relation declaration")
			}
			name, _, err := readToken(rest)
			if err != nil {
				return nil, &LoadError{Line: lineNo, Err: err}
			}
			if name == "" {
				return nil, lineErr(lineNo, "@relation requires a name")
			}
			relation = name
			state = sectionHeader
		case "@attribute":
			if state != sectionHeader {
				return nil, lineErr(lineNo, "@attribute before @relation")
			}
			attr, err := parseAttribute(rest)
			if err != nil {
				return nil, &LoadError{Line: lineNo, Err: err}
			}
			if seen[attr.Name] {
				return nil, lineErr(lineNo, "duplicate attribute %q", attr.Name)
			}
			seen[attr.Name] = true
			attrs = append(attrs, attr)
		case "@data":
			if state != sectionHeader {
				return nil, lineErr(lineNo, "@data before @relation")
			}
			if len(attrs) == 0 {
				return nil, lineErr(lineNo, "no attributes declared before @data")
			}
			state = sectionData
		default:
			if state == sectionStart {
				return nil, lineErr(lineNo, "expected @relation, got %q", truncate(line))
			}
			return nil, lineErr(lineNo, "unexpected header line %q", truncate(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Line: lineNo, Err: err}
	}

	switch state {
	case sectionStart:
		return nil, &LoadError{Err: fmt.Errorf("missing @relation declaration")}
	case sectionHeader:
		return nil, &LoadError{Err: fmt.Errorf("missing @data section")}
	}

	return dataset.NewTable(relation, attrs, rows), nil
}

// splitKeyword returns the lower-cased first word and the remainder
func splitKeyword(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:idx]), strings.TrimSpace(line[idx+1:])
}

func parseAttribute(rest string) (dataset.Attribute, error) {
	name, remainder, err := readToken(rest)
	if err != nil {
		return dataset.Attribute{}, err
	}
	if name == "" {
		return dataset.Attribute{}, fmt.Errorf("@attribute requires a name")
	}
	typeSpec := strings.TrimSpace(remainder)
	if typeSpec == "" {
		return dataset.Attribute{}, fmt.Errorf("attribute %q has no type", name)
	}

	attr := dataset.Attribute{Name: name}
	if strings.HasPrefix(typeSpec, "{") {
		if !strings.HasSuffix(typeSpec, "}") {
			return attr, fmt.Errorf("attribute %q: unterminated nominal specification", name)
		}
		values, err := splitValues(typeSpec[1 : len(typeSpec)-1])
		if err != nil {
			return attr, fmt.Errorf("attribute %q: %w", name, err)
		}
		attr.Kind = dataset.KindNominal
		for _, v := range values {
			attr.NominalValues = append(attr.NominalValues, v.text)
		}
		return attr, nil
	}

	kind, format := splitKeyword(typeSpec)
	switch kind {
	case "numeric", "real":
		attr.Kind = dataset.KindNumeric
	case "integer":
		attr.Kind = dataset.KindNumeric
		attr.Integer = true
	case "string":
		attr.Kind = dataset.KindString
	case "date":
		attr.Kind = dataset.KindDate
		attr.DateFormat, _, _ = readToken(format)
	case "relational":
		return attr, fmt.Errorf("attribute %q: relational attributes are not supported", name)
	default:
		return attr, fmt.Errorf("attribute %q: unknown type %q", name, kind)
	}
	return attr, nil
}

type token struct {
	text   string
	quoted bool
}

func parseRow(line string, attrs []dataset.Attribute) ([]dataset.Value, error) {
	tokens, err := splitValues(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) != len(attrs) {
		return nil, fmt.Errorf("expected %d values, got %d", len(attrs), len(tokens))
	}

	row := make([]dataset.Value, len(attrs))
	for i, tok := range tokens {
		attr := attrs[i]
		if !tok.quoted && tok.text == "?" {
			row[i] = dataset.MissingValue()
			continue
		}
		switch attr.Kind {
		case dataset.KindNumeric:
			num, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid numeric value %q for attribute %q", tok.text, attr.Name)
			}
			row[i] = dataset.NumberValue(num)
		case dataset.KindNominal:
			if !slices.Contains(attr.NominalValues, tok.text) {
				return nil, fmt.Errorf("invalid nominal value %q for attribute %q", tok.text, attr.Name)
			}
			row[i] = dataset.StringValue(tok.text)
		default:
			row[i] = dataset.StringValue(tok.text)
		}
	}
	return row, nil
}

// splitValues splits a comma-separated list honouring single and double quotes
func splitValues(s string) ([]token, error) {
	var tokens []token
	rest := s
	for {
		tok, remainder, err := readValue(rest)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		remainder = strings.TrimSpace(remainder)
		if remainder == "" {
			return tokens, nil
		}
		if remainder[0] != ',' {
			return nil, fmt.Errorf("expected ',' near %q", truncate(remainder))
		}
		rest = remainder[1:]
	}
}

// readValue reads one value up to the next separator
func readValue(s string) (token, string, error) {
	s = strings.TrimLeft(s, " \t")
	if s != "" && (s[0] == '\'' || s[0] == '"') {
		text, rest, err := readQuoted(s)
		return token{text: text, quoted: true}, rest, err
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return token{text: strings.TrimSpace(s)}, "", nil
	}
	return token{text: strings.TrimSpace(s[:idx])}, s[idx:], nil
}

// readToken reads one whitespace-delimited or quoted word
func readToken(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", "", nil
	}
	if s[0] == '\'' || s[0] == '"' {
		return readQuoted(s)
	}
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, "", nil
	}
	return s[:idx], s[idx:], nil
}

func readQuoted(s string) (string, string, error) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(unescape(s[i]))
		case c == quote:
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated quoted value %q", truncate(s))
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
