// =============================================================================
// Tabular Loader - XML Writer Module
// =============================================================================
//
// This module renders normalized records as an XML document, and the record
// schema as an XSD. It backs the "xml" sink, which exports each loaded file
// for review or for systems that take XML bulk uploads.
//
// XML STRUCTURE:
//
//   <records table="contacts" source="a.csv">
//     <record n="1">
//       <Id>1</Id>
//       <FirstName>Ann</FirstName>
//       <LastName nil="true"></LastName>
//       ...
//       <SourceFile>a.csv</SourceFile>
//       <Attributes>
//         <Attribute key="Tier">gold</Attribute>
//       </Attributes>
//       <BQInsertedDate>2024-01-02T03:04:05Z</BQInsertedDate>
//     </record>
//   </records>
//
// Null text fields are written as empty elements with nil="true" so they
// stay distinguishable from empty strings; OmitNulls drops them instead.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement is the name of the document element.
	// Default: "records"
	RootElement string

	// RootAttributes are additional attributes for the root element, written
	// in the given order.
	RootAttributes []xml.Attr

	// IndexAttribute is the attribute holding the 1-based record number.
	// Default: "n"
	IndexAttribute string

	// OmitNulls drops null fields instead of writing nil="true".
	// Default: false
	OmitNulls bool

	// TimeLayout formats BQInsertedDate.
	// Default: time.RFC3339Nano
	TimeLayout string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "records",
		IndexAttribute:        "n",
		TimeLayout:            time.RFC3339Nano,
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates an XML document from records with default options.
func Generate(records []types.Record) ([]byte, error) {
	return GenerateWithOptions(records, DefaultGenerateOptions())
}

// GenerateWithOptions creates an XML document with custom options.
//
// PARAMETERS:
//   - records: The records, written in order.
//   - options: Layout options; zero values fall back to the defaults.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if encoding fails.
func GenerateWithOptions(records []types.Record, options GenerateOptions) ([]byte, error) {
	options = withDefaults(options)

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	enc := xml.NewEncoder(&buffer)
	enc.Indent("", options.Indent)

	root := xml.StartElement{Name: xml.Name{Local: options.RootElement}, Attr: options.RootAttributes}
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}
	for i := range records {
		if err := encodeRecord(enc, &records[i], i+1, options); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i+1, err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush XML: %w", err)
	}

	buffer.WriteString("\n")
	return buffer.Bytes(), nil
}

func withDefaults(o GenerateOptions) GenerateOptions {
	d := DefaultGenerateOptions()
	if o.Indent == "" {
		o.Indent = d.Indent
	}
	if o.RootElement == "" {
		o.RootElement = d.RootElement
	}
	if o.IndexAttribute == "" {
		o.IndexAttribute = d.IndexAttribute
	}
	if o.TimeLayout == "" {
		o.TimeLayout = d.TimeLayout
	}
	return o
}

// =============================================================================
// RECORD ENCODING
// =============================================================================

func encodeRecord(enc *xml.Encoder, r *types.Record, n int, options GenerateOptions) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "record"},
		Attr: []xml.Attr{{Name: xml.Name{Local: options.IndexAttribute}, Value: strconv.Itoa(n)}},
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	text := []struct {
		name  string
		value *string
	}{
		{types.FieldId, r.Id},
		{types.FieldFirstName, r.FirstName},
		{types.FieldLastName, r.LastName},
		{types.FieldEmail, r.Email},
		{types.FieldMobile, r.Mobile},
		{types.FieldPostCode, r.PostCode},
		{types.FieldDataSource, r.DataSource},
		{types.FieldSourceCreatedDate, r.SourceCreatedDate},
		{types.FieldSourceModifiedDate, r.SourceModifiedDate},
	}
	for _, f := range text {
		if err := encodeText(enc, f.name, f.value, nil, options); err != nil {
			return err
		}
	}

	sourceFile := r.SourceFile
	if err := encodeText(enc, types.FieldSourceFile, &sourceFile, nil, options); err != nil {
		return err
	}

	attrs := xml.StartElement{Name: xml.Name{Local: types.FieldAttributes}}
	if err := enc.EncodeToken(attrs); err != nil {
		return err
	}
	for _, a := range r.Attributes {
		key := []xml.Attr{{Name: xml.Name{Local: "key"}, Value: a.Key}}
		if err := encodeText(enc, "Attribute", a.Value, key, options); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(attrs.End()); err != nil {
		return err
	}

	inserted := r.BQInsertedDate.Format(options.TimeLayout)
	if err := encodeText(enc, types.FieldBQInsertedDate, &inserted, nil, options); err != nil {
		return err
	}

	return enc.EncodeToken(start.End())
}

// encodeText writes <name attrs>value</name>, or the nil form for a nil value.
func encodeText(enc *xml.Encoder, name string, value *string, attrs []xml.Attr, options GenerateOptions) error {
	if value == nil {
		if options.OmitNulls {
			return nil
		}
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "nil"}, Value: "true"})
		return enc.EncodeElement("", xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
	}
	return enc.EncodeElement(*value, xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD creates an XSD describing documents produced by Generate with
// the given root element name.
func GenerateXSD(rootElement string) []byte {
	if rootElement == "" {
		rootElement = DefaultGenerateOptions().RootElement
	}

	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" elementFormDefault="qualified">` + "\n")

	buffer.WriteString(`  <xs:complexType name="nullableText">` + "\n")
	buffer.WriteString(`    <xs:simpleContent>` + "\n")
	buffer.WriteString(`      <xs:extension base="xs:string">` + "\n")
	buffer.WriteString(`        <xs:attribute name="nil" type="xs:boolean" use="optional"/>` + "\n")
	buffer.WriteString(`      </xs:extension>` + "\n")
	buffer.WriteString(`    </xs:simpleContent>` + "\n")
	buffer.WriteString(`  </xs:complexType>` + "\n")

	fmt.Fprintf(&buffer, `  <xs:element name="%s">`+"\n", rootElement)
	buffer.WriteString(`    <xs:complexType>` + "\n")
	buffer.WriteString(`      <xs:sequence>` + "\n")
	buffer.WriteString(`        <xs:element name="record" minOccurs="0" maxOccurs="unbounded">` + "\n")
	buffer.WriteString(`          <xs:complexType>` + "\n")
	buffer.WriteString(`            <xs:sequence>` + "\n")

	for _, field := range types.Columns {
		writeXSDElement(&buffer, field, 7)
	}

	buffer.WriteString(`            </xs:sequence>` + "\n")
	buffer.WriteString(`            <xs:attribute name="n" type="xs:positiveInteger" use="required"/>` + "\n")
	buffer.WriteString(`          </xs:complexType>` + "\n")
	buffer.WriteString(`        </xs:element>` + "\n")
	buffer.WriteString(`      </xs:sequence>` + "\n")
	buffer.WriteString(`      <xs:anyAttribute processContents="skip"/>` + "\n")
	buffer.WriteString(`    </xs:complexType>` + "\n")
	buffer.WriteString(`  </xs:element>` + "\n")
	buffer.WriteString(`</xs:schema>` + "\n")

	return buffer.Bytes()
}

// writeXSDElement writes the declaration for one record field.
func writeXSDElement(buffer *bytes.Buffer, field string, indentLevel int) {
	indent := bytes.Repeat([]byte("  "), indentLevel)
	buffer.Write(indent)

	switch field {
	case types.FieldSourceFile:
		fmt.Fprintf(buffer, `<xs:element name="%s" type="xs:string"/>`+"\n", field)
	case types.FieldBQInsertedDate:
		fmt.Fprintf(buffer, `<xs:element name="%s" type="xs:dateTime"/>`+"\n", field)
	case types.FieldAttributes:
		fmt.Fprintf(buffer, `<xs:element name="%s">`+"\n", field)
		buffer.Write(indent)
		buffer.WriteString(`  <xs:complexType><xs:sequence>` + "\n")
		buffer.Write(indent)
		buffer.WriteString(`    <xs:element name="Attribute" minOccurs="0" maxOccurs="unbounded">` + "\n")
		buffer.Write(indent)
		buffer.WriteString(`      <xs:complexType><xs:simpleContent><xs:extension base="nullableText">` + "\n")
		buffer.Write(indent)
		buffer.WriteString(`        <xs:attribute name="key" type="xs:string" use="required"/>` + "\n")
		buffer.Write(indent)
		buffer.WriteString(`      </xs:extension></xs:simpleContent></xs:complexType>` + "\n")
		buffer.Write(indent)
		buffer.WriteString(`    </xs:element>` + "\n")
		buffer.Write(indent)
		buffer.WriteString(`  </xs:sequence></xs:complexType>` + "\n")
		buffer.Write(indent)
		buffer.WriteString(`</xs:element>` + "\n")
	default:
		fmt.Fprintf(buffer, `<xs:element name="%s" type="nullableText" minOccurs="0"/>`+"\n", field)
	}
}
