package scaffold

import (
	"strings"

	"github.com/autostack/autostack/pkg/domain/project"
)

const indent = "    "

type tsType struct {
	name      string
	validator string
}

// schemaTypes maps Prisma scalar types onto TypeScript types and their
// class-validator decorator.
var schemaTypes = map[string]tsType{
	"int":      {"number", "@IsInt()"},
	"bigint":   {"number", "@IsInt()"},
	"float":    {"number", "@IsNumber()"},
	"decimal":  {"number", "@IsNumber()"},
	"string":   {"string", "@IsString()"},
	"boolean":  {"boolean", "@IsBoolean()"},
	"datetime": {"Date", "@IsDate()"},
	"json":     {"object", "@IsObject()"},
}

func lookupType(t string) tsType {
	if ts, ok := schemaTypes[strings.ToLower(strings.TrimSpace(t))]; ok {
		return ts
	}
	return tsType{name: strings.TrimSpace(t)}
}

type attributeStyle struct {
	decorators    bool
	forceOptional bool
}

// RenderDTOAttributes renders the properties of a create DTO: a doc
// comment, @ApiProperty and the validator for each attribute.
func RenderDTOAttributes(attrs []project.Attribute) string {
	return renderAttributes(attrs, attributeStyle{decorators: true})
}

// RenderUpdateDTOAttributes is RenderDTOAttributes with every property
// optional.
func RenderUpdateDTOAttributes(attrs []project.Attribute) string {
	return renderAttributes(attrs, attributeStyle{decorators: true, forceOptional: true})
}

// RenderEntityAttributes renders plain documented class properties.
func RenderEntityAttributes(attrs []project.Attribute) string {
	return renderAttributes(attrs, attributeStyle{})
}

func renderAttributes(attrs []project.Attribute, style attributeStyle) string {
	blocks := make([]string, 0, len(attrs))
	for _, a := range attrs {
		blocks = append(blocks, renderAttribute(a, style))
	}
	return strings.Join(blocks, "\n")
}

func renderAttribute(a project.Attribute, style attributeStyle) string {
	ts := lookupType(a.Type)
	optional := style.forceOptional || !a.Required

	var b strings.Builder
	b.WriteString("\n")
	if c := strings.TrimSpace(a.Comment); c != "" {
		b.WriteString(indent + "/**\n")
		for _, line := range strings.Split(c, "\n") {
			b.WriteString(indent + " * " + strings.TrimSpace(line) + "\n")
		}
		b.WriteString(indent + " */\n")
	}
	if style.decorators {
		if style.forceOptional {
			b.WriteString(indent + "@ApiProperty({ required: false })\n")
			b.WriteString(indent + "@IsOptional()\n")
		} else {
			b.WriteString(indent + "@ApiProperty()\n")
		}
		if ts.validator != "" {
			b.WriteString(indent + ts.validator + "\n")
		}
	}
	b.WriteString(indent + a.Name)
	if optional {
		b.WriteString("?")
	}
	b.WriteString(": " + ts.name + ";")
	return b.String()
}
