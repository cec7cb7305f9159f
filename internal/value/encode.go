package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects an output encoding for Encode.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user supplied name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// ContentType returns the MIME type used when serving f over HTTP.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Encode writes v to w in the requested format.
func Encode(w io.Writer, v Value, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

// MarshalJSON encodes records as objects with their column order intact.
// Nothing becomes null and error values become {"error": {...}}.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNothing:
		buf.WriteString("null")
	case KindString:
		writeJSONString(buf, v.str)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindRecord:
		buf.WriteByte('{')
		for i, col := range v.rec.cols {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, col)
			buf.WriteByte(':')
			if err := v.rec.vals[i].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindError:
		data, err := json.Marshal(struct {
			Error errorDTO `json:"error"`
		}{Error: newErrorDTO(v.err)})
		if err != nil {
			return err
		}
		buf.Write(data)
	default:
		return fmt.Errorf("cannot encode value of %s", v.kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	// json.Marshal on a string cannot fail.
	data, _ := json.Marshal(s)
	buf.Write(data)
}

// errorDTO is the wire shape of an error value.
type errorDTO struct {
	Msg    string `json:"msg" yaml:"msg"`
	Label  string `json:"label" yaml:"label"`
	Head   Span   `json:"head" yaml:"head"`
	Origin Span   `json:"origin" yaml:"origin"`
}

func newErrorDTO(e *ShellError) errorDTO {
	if e == nil {
		return errorDTO{}
	}
	return errorDTO{Msg: e.Msg, Label: e.Label, Head: e.Head, Origin: e.Origin}
}

// MarshalYAML builds an explicit node tree so record column order survives.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.yamlNode()
}

func (v Value) yamlNode() (*yaml.Node, error) {
	switch v.kind {
	case KindNothing:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}, nil
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			child, err := item.yamlNode()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case KindRecord:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, col := range v.rec.cols {
			child, err := v.rec.vals[i].yamlNode()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, strNode(col), child)
		}
		return n, nil
	case KindError:
		dto := newErrorDTO(v.err)
		inner := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		inner.Content = append(inner.Content,
			strNode("msg"), strNode(dto.Msg),
			strNode("label"), strNode(dto.Label),
			strNode("head"), spanNode(dto.Head),
			strNode("origin"), spanNode(dto.Origin),
		)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		n.Content = append(n.Content, strNode("error"), inner)
		return n, nil
	default:
		return nil, fmt.Errorf("cannot encode value of %s", v.kind)
	}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func spanNode(s Span) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	n.Content = append(n.Content,
		strNode("start"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(s.Start)},
		strNode("end"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(s.End)},
	)
	return n
}
