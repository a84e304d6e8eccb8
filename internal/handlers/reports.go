package handlers

import (
	"net/http"

	"hostel-portal/internal/export"
	"hostel-portal/internal/reports"
)

// ReportsViewModel holds data for the reports page.
type ReportsViewModel struct {
	Report reports.Report
	Error  string
}

func (h *Handlers) buildReport(r *http.Request) (reports.Report, error) {
	d, err := h.loadAll(r)
	if err != nil {
		return reports.Report{}, err
	}
	return reports.Build(d.hostels, d.rooms, d.bookings, h.now()), nil
}

// Reports renders occupancy, status distribution and the booking table.
func (h *Handlers) Reports(w http.ResponseWriter, r *http.Request) {
	var vm ReportsViewModel
	report, err := h.buildReport(r)
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	vm.Report = report
	h.render(w, r, "reports.html", vm)
}

// ExportCSV downloads the report as a CSV attachment.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildReport(r)
	if err != nil {
		http.Error(w, h.userMessage(err), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(report.GeneratedAt)+`"`)
	if err := export.WriteCSV(w, report); err != nil {
		h.logger.Error("write csv report", "error", err)
	}
}

// PrintReport serves a standalone printable document. It prints itself on
// load unless ?autoprint=0.
func (h *Handlers) PrintReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildReport(r)
	if err != nil {
		http.Error(w, h.userMessage(err), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.WriteHTML(w, report, r.URL.Query().Get("autoprint") != "0"); err != nil {
		h.logger.Error("write printable report", "error", err)
	}
}
