package xmlenc

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Attr is one element attribute.
type Attr struct {
	Name  string
	Value string
}

// Sink is the markup writer the encoder emits through. Implementations must
// escape attribute values and character data per XML rules.
//
// Sink is an interface so tests can substitute failing or recording writers;
// production callers use NewXMLSink.
type Sink interface {
	StartElement(name string, attrs ...Attr) error
	Text(s string) error
	EndElement() error
	Flush() error
}

// NewXMLSink returns a Sink writing indented XML to w, backed by the
// standard library token encoder.
func NewXMLSink(w io.Writer) Sink {
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	return &xmlSink{enc: enc}
}

type xmlSink struct {
	enc   *xml.Encoder
	stack []xml.Name
}

func (s *xmlSink) StartElement(name string, attrs ...Attr) error {
	el := xml.StartElement{Name: xml.Name{Local: name}}
	for _, a := range attrs {
		el.Attr = append(el.Attr, xml.Attr{
			Name:  xml.Name{Local: a.Name},
			Value: a.Value,
		})
	}
	if err := s.enc.EncodeToken(el); err != nil {
		return err
	}
	s.stack = append(s.stack, el.Name)
	return nil
}

func (s *xmlSink) Text(text string) error {
	return s.enc.EncodeToken(xml.CharData(text))
}

func (s *xmlSink) EndElement() error {
	if len(s.stack) == 0 {
		return fmt.Errorf("xmlenc: EndElement with no open element")
	}
	name := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return s.enc.EncodeToken(xml.EndElement{Name: name})
}

func (s *xmlSink) Flush() error {
	return s.enc.Flush()
}
