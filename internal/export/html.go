package export

import (
	"fmt"
	"html/template"
	"io"

	"hostel-portal/internal/models"
	"hostel-portal/internal/reports"
)

// PrintLimit caps the bookings listed in the printable report.
const PrintLimit = 50

type printView struct {
	Title     string
	Generated string
	reports.Report
	Recent    []models.Booking
	Truncated bool
	AutoPrint bool
}

var printTemplate = template.Must(template.New("print").Funcs(template.FuncMap{
	"label": func(s models.BookingStatus) string { return s.Label() },
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}).Parse(printHTML))

// WriteHTML writes a standalone printable document. Values are escaped by
// html/template. With autoPrint set the page opens the print dialog once
// loaded.
func WriteHTML(w io.Writer, r reports.Report, autoPrint bool) error {
	v := printView{
		Title:     Title,
		Generated: r.GeneratedAt.Format("2006-01-02 15:04:05"),
		Report:    r,
		Recent:    r.Bookings,
		AutoPrint: autoPrint,
	}
	if len(v.Recent) > PrintLimit {
		v.Recent = v.Recent[:PrintLimit]
		v.Truncated = true
	}
	if err := printTemplate.Execute(w, v); err != nil {
		return fmt.Errorf("render print report: %w", err)
	}
	return nil
}

const printHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Hostel Management Report</title>
  <style>
    body { font-family: Arial, sans-serif; padding: 20px; color: #333; }
    h1 { color: #166534; border-bottom: 2px solid #166534; padding-bottom: 10px; }
    h2 { color: #166534; margin-top: 30px; }
    .metrics { display: grid; grid-template-columns: repeat(4, 1fr); gap: 15px; margin: 20px 0; }
    .metric-card { background: #f0fdf4; padding: 15px; border-radius: 8px; text-align: center; }
    .metric-value { font-size: 24px; font-weight: bold; color: #166534; }
    .metric-label { color: #666; font-size: 14px; }
    table { width: 100%; border-collapse: collapse; margin: 15px 0; }
    th { background: #166534; color: white; padding: 10px; text-align: left; }
    td { padding: 8px; border: 1px solid #ddd; }
    .num { text-align: right; }
    .note, .footer { color: #666; font-size: 12px; }
    .footer { margin-top: 30px; padding-top: 15px; border-top: 1px solid #ddd; }
    @media print { body { padding: 0; } }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>Generated: {{.Generated}}</p>

  <div class="metrics">
    <div class="metric-card"><div class="metric-value">{{.Metrics.TotalHostels}}</div><div class="metric-label">Hostels</div></div>
    <div class="metric-card"><div class="metric-value">{{.Metrics.TotalRooms}}</div><div class="metric-label">Rooms</div></div>
    <div class="metric-card"><div class="metric-value">{{.Metrics.TotalBookings}}</div><div class="metric-label">Bookings</div></div>
    <div class="metric-card"><div class="metric-value">{{.Metrics.OccupancyRate}}%</div><div class="metric-label">Occupancy Rate</div></div>
  </div>

  <h2>Occupancy by Hostel</h2>
  <table>
    <thead><tr><th>Hostel</th><th class="num">Capacity</th><th class="num">Occupancy</th><th class="num">Rate</th></tr></thead>
    <tbody>
    {{- range .Occupancy}}
      <tr><td>{{.Hostel}}</td><td class="num">{{.Capacity}}</td><td class="num">{{.Occupancy}}</td><td class="num">{{.Rate}}%</td></tr>
    {{- else}}
      <tr><td colspan="4" style="text-align:center;">No data</td></tr>
    {{- end}}
    </tbody>
  </table>

  <h2>Booking Status Distribution</h2>
  <table>
    <thead><tr><th>Status</th><th class="num">Count</th></tr></thead>
    <tbody>
    {{- range .Statuses}}
      <tr><td>{{label .Status}}</td><td class="num">{{.Count}}</td></tr>
    {{- else}}
      <tr><td colspan="2" style="text-align:center;">No data</td></tr>
    {{- end}}
    </tbody>
  </table>

  <h2>Recent Bookings</h2>
  <table>
    <thead><tr><th>ID</th><th>Student</th><th>Hostel</th><th>Room</th><th>Status</th></tr></thead>
    <tbody>
    {{- range .Recent}}
      <tr><td>{{.ID}}</td><td>{{orDash .StudentName}}</td><td>{{orDash .HostelName}}</td><td>{{orDash .RoomNumber}}</td><td>{{orDash (print .Status)}}</td></tr>
    {{- else}}
      <tr><td colspan="5" style="text-align:center;">No bookings</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- if .Truncated}}
  <p class="note">Showing {{len .Recent}} of {{len .Bookings}} bookings. Export to CSV for complete data.</p>
  {{- end}}

  <div class="footer"><p>This report was generated by the Hostel Management System.</p></div>
  {{- if .AutoPrint}}
  <script>window.addEventListener("load", function () { setTimeout(function () { window.print(); }, 250); });</script>
  {{- end}}
</body>
</html>
`
