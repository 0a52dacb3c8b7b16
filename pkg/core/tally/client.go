package tally

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tally_insights/pkg/models"
)

// =============================================================================
// GATEWAY CLIENT - HTTP transport to the Tally export endpoint
// =============================================================================

// reportAliases lists the alternate names one logical report is exported
// under, probed in order. Tally installations differ in which alias answers.
var reportAliases = map[string][]string{
	"Profit & Loss": {
		"ProfitAndLoss",
		"Trading & Profit & Loss",
		"Profit & Loss A/c",
	},
}

// Client talks to the Tally HTTP gateway. Zero value is not usable; construct
// with NewClient.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient reads the gateway address from TALLY_URL.
func NewClient() *Client {
	base := os.Getenv("TALLY_URL")
	if base == "" {
		base = "http://localhost:9000"
	}
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchReport fetches and decodes one report export. Alias candidates are
// probed until one yields a non-empty envelope; an empty export tree (never
// an error) is returned when every candidate fails, so normalization
// degrades to an empty table instead of aborting the request.
func (c *Client) FetchReport(ctx context.Context, companyName, reportName string, staticVars map[string]string) models.RawExport {
	candidates := []string{reportName}
	if aliases, ok := reportAliases[reportName]; ok {
		candidates = aliases
	}

	for _, name := range candidates {
		export, err := c.fetchOne(ctx, companyName, name, staticVars)
		if err != nil {
			log.Printf("[TallyClient] report %q via %q failed: %v", reportName, name, err)
			continue
		}
		if len(export) > 0 {
			return export
		}
	}
	return models.RawExport{}
}

func (c *Client) fetchOne(ctx context.Context, companyName, reportName string, staticVars map[string]string) (models.RawExport, error) {
	payload := BuildReportEnvelope(reportName, companyName, staticVars)

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("response read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return ParseEnvelope(string(body))
}

// companyListRequest asks the gateway for every loaded company.
const companyListRequest = `<?xml version="1.0" encoding="UTF-8"?>
<ENVELOPE>
    <HEADER>
        <VERSION>1</VERSION>
        <TALLYREQUEST>Export</TALLYREQUEST>
        <TYPE>Collection</TYPE>
        <ID>List of Companies</ID>
    </HEADER>
    <BODY>
        <DESC>
            <STATICVARIABLES>
                <SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT>
            </STATICVARIABLES>
            <TDL>
                <TDLMESSAGE>
                    <COLLECTION NAME="List of Companies">
                        <TYPE>Company</TYPE>
                        <FETCH>Name</FETCH>
                    </COLLECTION>
                </TDLMESSAGE>
            </TDL>
        </DESC>
    </BODY>
</ENVELOPE>`

// CompanyList fetches the names of all companies loaded in the gateway.
func (c *Client) CompanyList(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, strings.NewReader(companyListRequest))
	if err != nil {
		return nil, fmt.Errorf("request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("company list parse failed: %w", err)
	}

	var companies []string
	doc.Find("company name").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			companies = append(companies, name)
		}
	})
	// Some gateway versions nest the name one level differently.
	if len(companies) == 0 {
		doc.Find("company").Each(func(_ int, s *goquery.Selection) {
			if name := strings.TrimSpace(s.Find("name").First().Text()); name != "" {
				companies = append(companies, name)
			}
		})
	}
	return companies, nil
}
