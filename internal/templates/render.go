package templates

// Render substitutes every tagged line of doc that has a binding and copies all
// other lines unchanged. Each occurrence of a tag is replaced by the same line.
func Render(doc *Document, b Bindings) []string {
	return RenderWithReport(doc, b).Lines
}

// RenderReport is the result of a render pass.
type RenderReport struct {
	Lines []string
	// Replaced counts substituted lines.
	Replaced int
	// Unbound lists distinct tags that had no binding, in order of first
	// appearance. Their lines were copied unchanged.
	Unbound []string
}

// RenderWithReport renders like Render and also reports unbound tags.
func RenderWithReport(doc *Document, b Bindings) RenderReport {
	report := RenderReport{Lines: make([]string, len(doc.lines))}
	var seen map[string]bool
	for i, line := range doc.lines {
		tok, ok := FindTag(line)
		if !ok {
			report.Lines[i] = line
			continue
		}
		if generated, bound := b.Line(tok); bound {
			report.Lines[i] = generated
			report.Replaced++
			continue
		}
		report.Lines[i] = line
		if seen == nil {
			seen = make(map[string]bool)
		}
		if !seen[tok] {
			seen[tok] = true
			report.Unbound = append(report.Unbound, tok)
		}
	}
	return report
}
