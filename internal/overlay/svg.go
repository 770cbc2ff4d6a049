package overlay

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const svgNS = "http://www.w3.org/2000/svg"

// Parse reads an SVG document into an Overlay.
func Parse(r io.Reader) (*Overlay, error) {
	dec := xml.NewDecoder(r)
	var (
		root  *Overlay
		stack []*Element
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse overlay: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root == nil {
				if t.Name.Local != "svg" {
					return nil, fmt.Errorf("parse overlay: root element is %q, want svg", t.Name.Local)
				}
				root, err = parseRoot(t)
				if err != nil {
					return nil, err
				}
				continue
			}
			el := &Element{Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				name := a.Name.Local
				if a.Name.Space != "" && a.Name.Space != svgNS {
					name = prefixFor(a.Name.Space) + ":" + name
				}
				el.Attrs = append(el.Attrs, Attr{Name: name, Value: a.Value})
			}
			if len(stack) == 0 {
				root.Children = append(root.Children, el)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.Name == "text" || top.Name == "tspan" {
					top.Text += string(t)
				}
			}
		}
	}
	if root == nil {
		return nil, errors.New("parse overlay: no svg element")
	}
	return root, nil
}

func prefixFor(space string) string {
	switch space {
	case "http://www.w3.org/1999/xlink":
		return "xlink"
	case "http://www.w3.org/XML/1998/namespace":
		return "xml"
	}
	return space
}

func parseRoot(t xml.StartElement) (*Overlay, error) {
	o := &Overlay{}
	for _, a := range t.Attr {
		switch a.Name.Local {
		case "width":
			v, err := parseLength(a.Value)
			if err != nil {
				return nil, fmt.Errorf("parse overlay: width %q: %w", a.Value, err)
			}
			o.Width = v
		case "height":
			v, err := parseLength(a.Value)
			if err != nil {
				return nil, fmt.Errorf("parse overlay: height %q: %w", a.Value, err)
			}
			o.Height = v
		case "viewBox":
			vb, err := parseViewBox(a.Value)
			if err != nil {
				return nil, err
			}
			o.ViewBox = &vb
		case "preserveAspectRatio":
			o.PreserveAspectRatio = a.Value
		}
	}
	if o.Width == 0 && o.ViewBox != nil {
		o.Width = o.ViewBox.W
	}
	if o.Height == 0 && o.ViewBox != nil {
		o.Height = o.ViewBox.H
	}
	return o, nil
}

func parseViewBox(s string) (ViewBox, error) {
	pts, err := parsePoints(s)
	if err != nil || len(pts) != 2 {
		return ViewBox{}, fmt.Errorf("parse overlay: viewBox %q", s)
	}
	vb := ViewBox{X: pts[0].X, Y: pts[0].Y, W: pts[1].X, H: pts[1].Y}
	if vb.W <= 0 || vb.H <= 0 {
		return ViewBox{}, fmt.Errorf("parse overlay: viewBox %q has no area", s)
	}
	return vb, nil
}

// Marshal writes o as a standalone SVG document.
func (o *Overlay) Marshal(w io.Writer) error {
	enc := xml.NewEncoder(w)
	root := xml.StartElement{
		Name: xml.Name{Local: "svg"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: svgNS},
			{Name: xml.Name{Local: "width"}, Value: formatFloat(o.Width)},
			{Name: xml.Name{Local: "height"}, Value: formatFloat(o.Height)},
			{Name: xml.Name{Local: "viewBox"}, Value: o.Frame().String()},
		},
	}
	if o.PreserveAspectRatio != "" {
		root.Attr = append(root.Attr, xml.Attr{Name: xml.Name{Local: "preserveAspectRatio"}, Value: o.PreserveAspectRatio})
	}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, c := range o.Children {
		if err := encodeElement(enc, c); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

// String returns the SVG serialization, or an error comment.
func (o *Overlay) String() string {
	var buf bytes.Buffer
	if err := o.Marshal(&buf); err != nil {
		return fmt.Sprintf("<!-- %v -->", err)
	}
	return buf.String()
}

func encodeElement(enc *xml.Encoder, e *Element) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}}
	for _, a := range e.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if s := strings.TrimSpace(e.Text); s != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := encodeElement(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
