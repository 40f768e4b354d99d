package render

import (
	"fmt"
	"strings"

	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/validator"
)

// SchemaMarkdown describes a schema as a markdown document.
func SchemaMarkdown(s SchemaDTO) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Schema %s (%s) v%d\n\n", s.Key, s.Role, s.Version)
	writeHeader(&sb, s.VersionDTO)
	if s.DataModelID != "" {
		fmt.Fprintf(&sb, "- **Data model:** `%s`\n", s.DataModelID)
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(&sb, "- **Tags:** %s\n", strings.Join(s.Tags, ", "))
	}

	sb.WriteString("\n## Fields\n\n")
	if len(s.Fields) == 0 {
		sb.WriteString("_No fields._\n")
	} else {
		sb.WriteString("| Path | Type | Element | Required | Description |\n")
		sb.WriteString("|------|------|---------|----------|-------------|\n")
		for _, f := range s.Fields {
			typ := string(f.Type)
			if f.ScalarType != "" {
				typ += " " + string(f.ScalarType)
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				code(f.Path), typ, code(f.ElementSchemaID), yesNo(f.Required), cell(f.Description))
		}
	}

	if len(s.Keys) > 0 {
		sb.WriteString("\n## Keys\n\n")
		for _, k := range s.Keys {
			primary := ""
			if k.Primary {
				primary = " (primary)"
			}
			fmt.Fprintf(&sb, "- **%s**%s: %s\n", k.Name, primary, codeList(k.Fields))
		}
	}
	return sb.String()
}

// TransformationMarkdown describes a transformation spec as a markdown document.
func TransformationMarkdown(t TransformationDTO) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Transformation %s v%d\n\n", t.Mode, t.Version)
	writeHeader(&sb, t.VersionDTO)
	fmt.Fprintf(&sb, "- **Source:** `%s`\n", t.SourceSchemaID)
	fmt.Fprintf(&sb, "- **Target:** `%s`\n", t.TargetSchemaID)
	fmt.Fprintf(&sb, "- **Cardinality:** %s\n", t.Cardinality)

	if t.Mode == domain.ModeSimple {
		sb.WriteString("\n## Rules\n\n")
		if len(t.Rules) == 0 {
			sb.WriteString("_No rules._\n")
		} else {
			sb.WriteString("| Order | Source | Target | Converter | Required |\n")
			sb.WriteString("|-------|--------|--------|-----------|----------|\n")
			for _, r := range t.Rules {
				fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n",
					r.Order, code(r.SourcePath), code(r.TargetPath), code(r.ConverterID), yesNo(r.Required))
			}
		}
	} else {
		sb.WriteString("\n## Nodes\n\n")
		if len(t.Nodes) == 0 {
			sb.WriteString("_No nodes._\n")
		}
		for _, n := range t.Nodes {
			fmt.Fprintf(&sb, "- `%s` %s", n.Key, n.Type)
			if n.OutputType != "" {
				fmt.Fprintf(&sb, " -> %s", n.OutputType)
			}
			sb.WriteString("\n")
		}
		if len(t.Edges) > 0 {
			sb.WriteString("\n## Edges\n\n")
			for _, e := range t.Edges {
				fmt.Fprintf(&sb, "- `%s` -> `%s`.%s [%d]\n", e.From, e.To, e.Input, e.Order)
			}
		}
		if len(t.Bindings) > 0 {
			sb.WriteString("\n## Output bindings\n\n")
			for _, b := range t.Bindings {
				fmt.Fprintf(&sb, "- `%s` <- `%s`\n", b.TargetPath, b.From)
			}
		}
	}

	if len(t.References) > 0 {
		sb.WriteString("\n## References\n\n")
		for _, r := range t.References {
			fmt.Fprintf(&sb, "- `%s` -> `%s` via `%s`\n", r.SourceFieldPath, r.TargetFieldPath, r.ChildSpecID)
		}
	}
	return sb.String()
}

// ValidationMarkdown describes a validation spec as a markdown document.
func ValidationMarkdown(v ValidationDTO) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Validation v%d\n\n", v.Version)
	writeHeader(&sb, v.VersionDTO)
	fmt.Fprintf(&sb, "- **Data schema:** `%s`\n", v.DataSchemaID)

	sb.WriteString("\n## Rules\n\n")
	if len(v.Rules) == 0 {
		sb.WriteString("_No rules._\n")
	} else {
		sb.WriteString("| Type | Severity | Parameters |\n")
		sb.WriteString("|------|----------|------------|\n")
		for _, r := range v.Rules {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.Type, r.Severity, code(r.Parameters))
		}
	}

	if len(v.References) > 0 {
		sb.WriteString("\n## References\n\n")
		for _, r := range v.References {
			fmt.Fprintf(&sb, "- `%s` via `%s`\n", r.FieldPath, r.ChildSpecID)
		}
	}
	return sb.String()
}

// DataModelMarkdown describes a data model as a markdown document.
func DataModelMarkdown(m DataModelDTO) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Data model %s\n\n", m.Name)
	fmt.Fprintf(&sb, "- **ID:** `%s`\n", m.ID)
	fmt.Fprintf(&sb, "- **Tenant:** %s\n", m.TenantID)
	fmt.Fprintf(&sb, "- **Key:** `%s`\n", m.Key)
	if m.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", m.Description)
	}
	return sb.String()
}

// ValidationResult renders the outcome of a validate command as styled text.
func ValidationResult(kind domain.EntityKind, id string, res validator.Result) string {
	var sb strings.Builder
	if res.Valid {
		sb.WriteString(SuccessStyle.Render("✓ valid"))
		fmt.Fprintf(&sb, " %s %s\n", kind, MutedStyle.Render(id))
		return sb.String()
	}
	sb.WriteString(ErrorStyle.Render(fmt.Sprintf("✗ %d issue(s)", len(res.Errors))))
	fmt.Fprintf(&sb, " %s %s\n", kind, MutedStyle.Render(id))
	for _, issue := range res.Errors {
		if issue.Field != "" {
			fmt.Fprintf(&sb, "  %s %s\n", WarningStyle.Render(issue.Field), issue.Message)
		} else {
			fmt.Fprintf(&sb, "  %s\n", issue.Message)
		}
	}
	return sb.String()
}

// VersionTable renders a version listing as aligned styled rows.
func VersionTable(versions []VersionDTO) string {
	if len(versions) == 0 {
		return MutedStyle.Render("no versions") + "\n"
	}
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(fmt.Sprintf("%-8s %-10s %-36s %s", "VERSION", "STATUS", "ID", "PUBLISHED")))
	sb.WriteString("\n")
	for _, v := range versions {
		published := ""
		if v.PublishedAt != nil {
			published = v.PublishedAt.UTC().Format("2006-01-02 15:04:05") + " by " + v.PublishedBy
		}
		// Pad before styling so ANSI codes do not skew the columns.
		fmt.Fprintf(&sb, "%-8d %s %-36s %s\n", v.Version,
			Status(v.Status)+strings.Repeat(" ", max(0, 10-len(v.Status))), v.ID, MutedStyle.Render(published))
	}
	return sb.String()
}

func writeHeader(sb *strings.Builder, v VersionDTO) {
	fmt.Fprintf(sb, "- **ID:** `%s`\n", v.ID)
	fmt.Fprintf(sb, "- **Tenant:** %s\n", v.TenantID)
	fmt.Fprintf(sb, "- **Status:** %s\n", v.Status)
	if v.PublishedAt != nil {
		fmt.Fprintf(sb, "- **Published:** %s by %s\n", v.PublishedAt.UTC().Format("2006-01-02 15:04:05"), v.PublishedBy)
	}
	if v.Description != "" {
		fmt.Fprintf(sb, "- **Description:** %s\n", v.Description)
	}
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + s + "`"
}

func codeList(items []string) string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = code(s)
	}
	return strings.Join(out, ", ")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
