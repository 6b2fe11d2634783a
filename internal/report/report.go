// Package report summarises a lead search run for operators.
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
)

// maxTopLeads caps the leads listed in text and HTML reports.
const maxTopLeads = 10

// Summary contains aggregated metrics about one search run.
type Summary struct {
	Total       int            `json:"total"`
	Sources     []string       `json:"sources"`
	BySource    map[string]int `json:"bySource"`
	WithEmail   int            `json:"withEmail"`
	WithPhone   int            `json:"withPhone"`
	WithWebsite int            `json:"withWebsite"`
	Buckets     map[string]int `json:"buckets"`
	ByUrgency   map[string]int `json:"byUrgency"`
	AvgScore    float64        `json:"avgScore"`
	ScrapedAt   time.Time      `json:"scrapedAt"`
	Top         []TopLead      `json:"top"`
}

// TopLead is the short form of a lead shown in reports.
type TopLead struct {
	Company string `json:"company"`
	Source  string `json:"source"`
	Score   int    `json:"score"`
	Contact string `json:"contact"`
	URL     string `json:"url"`
}

// GenerateSummary aggregates leads, which are expected in ranked order.
func GenerateSummary(leads []lead.Formatted, meta lead.Meta) Summary {
	s := Summary{
		Total:     len(leads),
		Sources:   append([]string{}, meta.Sources...),
		BySource:  make(map[string]int),
		Buckets:   map[string]int{lead.BucketHot: 0, lead.BucketWarm: 0, lead.BucketMild: 0, lead.BucketCold: 0},
		ByUrgency: make(map[string]int),
		ScrapedAt: meta.ScrapedAt,
	}

	total := 0
	for _, l := range leads {
		s.BySource[l.Source]++
		s.Buckets[lead.Bucket(l.ConfidenceScore)]++
		s.ByUrgency[l.Urgency]++
		total += l.ConfidenceScore
		if l.HasEmail() {
			s.WithEmail++
		}
		if l.HasPhone() {
			s.WithPhone++
		}
		if l.HasWebsite() {
			s.WithWebsite++
		}
		if len(s.Top) < maxTopLeads {
			s.Top = append(s.Top, top(l))
		}
	}
	if len(leads) > 0 {
		s.AvgScore = float64(total) / float64(len(leads))
	}
	return s
}

func top(l lead.Formatted) TopLead {
	t := TopLead{Company: l.CompanyName, Source: l.Source, Score: l.ConfidenceScore}
	switch {
	case l.Email != nil:
		t.Contact = *l.Email
	case l.Phone != nil:
		t.Contact = *l.Phone
	case l.CompanyWebsite != nil:
		t.Contact = *l.CompanyWebsite
	}
	if l.SourceURL != nil {
		t.URL = *l.SourceURL
	}
	return t
}

// Coverage returns part as a percentage of the total, or 0 for an empty run.
func (s Summary) Coverage(part int) float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(s.Total)
}

// Count is one labelled tally in a report breakdown.
type Count struct {
	Key   string
	Count int
}

// SourceCounts returns BySource ordered by descending count, then byte-wise name.
func (s Summary) SourceCounts() []Count {
	out := make([]Count, 0, len(s.BySource))
	for k, v := range s.BySource {
		out = append(out, Count{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// BucketCounts returns the score buckets hottest first.
func (s Summary) BucketCounts() []Count {
	keys := []string{lead.BucketHot, lead.BucketWarm, lead.BucketMild, lead.BucketCold}
	out := make([]Count, len(keys))
	for i, k := range keys {
		out[i] = Count{k, s.Buckets[k]}
	}
	return out
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `LeadScout Run Summary
---------------------
Scraped:       {{.ScrapedAt.Format "2006-01-02 15:04:05"}}
Leads:         {{.Total}} (avg score {{printf "%.1f" .AvgScore}})
Sources:       {{range $i, $s := .Sources}}{{if $i}}, {{end}}{{$s}}{{else}}none{{end}}
With email:    {{.WithEmail}} ({{printf "%.0f" (.Coverage .WithEmail)}}%)
With phone:    {{.WithPhone}} ({{printf "%.0f" (.Coverage .WithPhone)}}%)
With website:  {{.WithWebsite}} ({{printf "%.0f" (.Coverage .WithWebsite)}}%)

By Source:
{{- range .SourceCounts}}
  {{.Key}}: {{.Count}}
{{- else}}
  None
{{- end}}

Score Buckets:
{{- range .BucketCounts}}
  {{.Key}}: {{.Count}}
{{- end}}

Top Leads:
{{- range .Top}}
  [{{.Score}}] {{.Company}} ({{.Source}}){{if .Contact}} {{.Contact}}{{end}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}

// WriteHTML writes a basic HTML report to the provided writer. Lead fields
// come from scraped pages and are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>LeadScout Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
  .hot { color: #c0392b; } .warm { color: #d35400; } .mild { color: #7f8c8d; } .cold { color: #2c3e50; }
</style>
</head>
<body>
  <h1>LeadScout Report</h1>
  <p><strong>Scraped:</strong> {{.ScrapedAt.Format "2006-01-02 15:04:05"}} from {{range $i, $s := .Sources}}{{if $i}}, {{end}}{{$s}}{{else}}no sources{{end}}</p>

  <div class="stat-card">
    <div>Leads</div>
    <div class="stat-val">{{.Total}}</div>
  </div>
  <div class="stat-card">
    <div>With Email</div>
    <div class="stat-val">{{.WithEmail}}</div>
  </div>
  <div class="stat-card">
    <div>With Phone</div>
    <div class="stat-val">{{.WithPhone}}</div>
  </div>
  <div class="stat-card">
    <div>Avg Score</div>
    <div class="stat-val">{{printf "%.1f" .AvgScore}}</div>
  </div>

  <h3>By Source</h3>
  <table>
    <tr><th>Source</th><th>Leads</th></tr>
    {{- range .SourceCounts}}
    <tr><td>{{.Key}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Score Buckets</h3>
  <table>
    <tr><th>Bucket</th><th>Leads</th></tr>
    {{- range .BucketCounts}}
    <tr><td class="{{.Key}}">{{.Key}}</td><td>{{.Count}}</td></tr>
    {{- end}}
  </table>

  <h3>Top Leads</h3>
  <table>
    <tr><th>Score</th><th>Company</th><th>Source</th><th>Contact</th></tr>
    {{- range .Top}}
    <tr><td>{{.Score}}</td><td>{{if .URL}}<a href="{{.URL}}">{{.Company}}</a>{{else}}{{.Company}}{{end}}</td><td>{{.Source}}</td><td>{{.Contact}}</td></tr>
    {{- else}}
    <tr><td colspan="4">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

// Write renders summary in format: "json", "html" or "text" (default).
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	case "", "text":
		return WriteText(w, summary)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
