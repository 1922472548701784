package report

import (
	"fmt"
	"html/template"
	"io"

	mq "github.com/gofhir/miiquality"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"score":   func(r *mq.QualityReport) string { return fmt.Sprintf("%.1f%%", r.ScorePercent()) },
	"modules": moduleList,
	"rateClass": func(f float64) string {
		switch {
		case f >= 90:
			return "success"
		case f >= 70:
			return "warning"
		default:
			return "error"
		}
	},
	"timestamp": func(s *Summary) string { return s.GeneratedAt.Format("2006-01-02 15:04:05") },
}).Parse(htmlSource))

// WriteHTML writes the summary as a standalone HTML page.
func WriteHTML(w io.Writer, s *Summary) error {
	if err := htmlTemplate.Execute(w, s); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	return nil
}

const htmlSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>FHIR Quality Inspection Report</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #1f2937; background: #f9fafb; padding: 20px; }
.container { max-width: 1200px; margin: 0 auto; background: white; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1); overflow: hidden; }
.header { background: linear-gradient(135deg, #2563eb 0%, #1e40af 100%); color: white; padding: 30px; }
.header h1 { font-size: 28px; margin-bottom: 8px; }
.header p { opacity: 0.9; font-size: 14px; }
.summary { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; padding: 30px; border-bottom: 1px solid #e5e7eb; }
.stat-card { background: white; padding: 20px; border-radius: 6px; border: 1px solid #e5e7eb; }
.stat-label { font-size: 13px; color: #6b7280; text-transform: uppercase; }
.stat-value { font-size: 32px; font-weight: 700; }
.stat-subtext { font-size: 13px; color: #6b7280; }
.content { padding: 30px; }
.bundle-card { border: 1px solid #e5e7eb; border-radius: 6px; padding: 20px; margin-top: 16px; }
.bundle-header { display: flex; justify-content: space-between; align-items: center; }
.bundle-name { font-weight: 600; font-size: 16px; }
.bundle-status { padding: 4px 12px; border-radius: 12px; font-size: 13px; font-weight: 600; }
.status-passed { background: #d1fae5; color: #065f46; }
.status-failed { background: #fee2e2; color: #991b1b; }
.bundle-meta { display: flex; flex-wrap: wrap; gap: 20px; font-size: 14px; margin-top: 8px; color: #4b5563; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; font-size: 13px; }
th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #f3f4f6; }
.success { color: #059669; }
.warning { color: #d97706; }
.error { color: #dc2626; }
.information { color: #2563eb; }
.footer { padding: 20px 30px; font-size: 12px; color: #9ca3af; border-top: 1px solid #e5e7eb; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>FHIR Quality Inspection Report</h1>
    <p>MII Kerndatensatz quality checks</p>
    <p>Generated: {{timestamp .}} &middot; Run {{.RunID}}</p>
  </div>

  <div class="summary">
    <div class="stat-card">
      <div class="stat-label">Total Bundles</div>
      <div class="stat-value">{{.TotalBundles}}</div>
      <div class="stat-subtext">{{.ValidBundles}} valid</div>
    </div>
    <div class="stat-card">
      <div class="stat-label">Pass Rate</div>
      <div class="stat-value {{rateClass .PassRate}}">{{percent .PassRate}}</div>
      <div class="stat-subtext">{{.Passed}}/{{.ValidBundles}} passed</div>
    </div>
    <div class="stat-card">
      <div class="stat-label">Avg Quality Score</div>
      <div class="stat-value">{{percent .AverageScore}}</div>
    </div>
    <div class="stat-card">
      <div class="stat-label">Total Issues</div>
      <div class="stat-value {{if eq .TotalIssues 0}}success{{else}}warning{{end}}">{{.TotalIssues}}</div>
      <div class="stat-subtext"><span class="error">{{.TotalErrors}} errors</span> &middot; <span class="warning">{{.TotalWarnings}} warnings</span></div>
    </div>
  </div>

  <div class="content">
    <h2>Bundle Details</h2>
    {{range .Bundles}}
    <div class="bundle-card">
      <div class="bundle-header">
        <div class="bundle-name">{{.Source}}</div>
        {{if .Passed}}<div class="bundle-status status-passed">&#10003; Passed</div>{{else}}<div class="bundle-status status-failed">&#10007; Failed</div>{{end}}
      </div>
      {{with .Report}}
      <div class="bundle-meta">
        <div><strong>Quality Score:</strong> {{score .}}</div>
        <div><strong>Resources:</strong> {{.EntryCount}}</div>
        <div><strong>Bundle Type:</strong> {{.BundleType}}</div>
        <div><strong>MII Modules:</strong> {{modules .Modules}}</div>
        <div><strong>Checks:</strong> {{.ChecksPassed}}/{{.ChecksApplicable}} passed</div>
      </div>
      {{with .Issues}}
      <table>
        <tr><th>Severity</th><th>Check</th><th>Resource</th><th>Path</th><th>Message</th></tr>
        {{range .}}
        <tr><td class="{{.Severity}}">{{.Severity}}</td><td>{{.CheckID}}</td><td>{{.Target}}</td><td>{{.Path}}</td><td>{{.Message}}</td></tr>
        {{end}}
      </table>
      {{end}}
      {{end}}
      {{with .Error}}<div class="bundle-meta"><span class="error">Error: {{.}}</span></div>{{end}}
    </div>
    {{end}}
  </div>

  <div class="footer">Generated by mii-inspector</div>
</div>
</body>
</html>
`
