package tally

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"tally_insights/pkg/models"
)

// =============================================================================
// ENVELOPE CODEC - Tally XML request building and response decoding
// =============================================================================

// BuildReportEnvelope renders the export-data request for one report.
// staticVars controls date ranges and other SVs; SVCurrentCompany defaults to
// the company name when not supplied.
func BuildReportEnvelope(reportName, companyName string, staticVars map[string]string) string {
	vars := map[string]string{"SVCurrentCompany": companyName}
	var order []string
	order = append(order, "SVCurrentCompany")
	for k, v := range staticVars {
		if v == "" {
			continue
		}
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}

	var sv strings.Builder
	for _, k := range order {
		fmt.Fprintf(&sv, "            <%s>%s</%s>\n", escapeXML(k), escapeXML(vars[k]), escapeXML(k))
	}

	return fmt.Sprintf(`<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Export Data</TALLYREQUEST>
  </HEADER>
  <BODY>
    <EXPORTDATA>
      <REQUESTDESC>
        <REPORTNAME>%s</REPORTNAME>
        <STATICVARIABLES>
%s        </STATICVARIABLES>
      </REQUESTDESC>
    </EXPORTDATA>
  </BODY>
</ENVELOPE>`, escapeXML(reportName), sv.String())
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// ParseEnvelope decodes a Tally response document into the raw export tree.
// The contract downstream code relies on: repeated sibling tags become lists,
// leaf text becomes a string, empty leaves become nil. Tally emits tag soup
// rather than strict XML, so the lenient HTML parser underneath goquery is
// used; it lowercases tag names, which are folded back to Tally's uppercase
// key space here.
func ParseEnvelope(raw string) (models.RawExport, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response document")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("response parse failed: %w", err)
	}

	sel := doc.Find("envelope").First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("response has no ENVELOPE element")
	}

	tree := nodeToTree(sel.Nodes[0])
	return models.RawExport{"ENVELOPE": tree}, nil
}

// nodeToTree converts one element node into the nested map/list/string form.
func nodeToTree(n *html.Node) interface{} {
	var elements []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			elements = append(elements, c)
		}
	}

	// Leaf: collapse to trimmed text, nil when empty.
	if len(elements) == 0 {
		text := strings.TrimSpace(nodeText(n))
		if text == "" {
			return nil
		}
		return text
	}

	result := map[string]interface{}{}
	for _, child := range elements {
		key := strings.ToUpper(child.Data)
		val := nodeToTree(child)

		if existing, ok := result[key]; ok {
			if list, isList := existing.([]interface{}); isList {
				result[key] = append(list, val)
			} else {
				result[key] = []interface{}{existing, val}
			}
		} else {
			result[key] = val
		}
	}
	return result
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
