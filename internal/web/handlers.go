package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lessoncal/internal/calendar"
	"lessoncal/internal/ics"
	appLog "lessoncal/internal/log"
	"lessoncal/internal/model"
	"lessoncal/internal/schedule"
	"lessoncal/internal/timemath"
)

type studentsResponse struct {
	Students []model.Student `json:"students"`
}

type studentResponse struct {
	Student model.Student `json:"student"`
}

type bookingRequest struct {
	StudentID string `json:"studentId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime,omitempty"`
}

type bookingResponse struct {
	Booking model.Booking `json:"booking"`
}

type agendaResponse struct {
	Date    string              `json:"date"`
	Entries []model.AgendaEntry `json:"entries"`
}

type monthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type calendarResponse struct {
	Year     int                `json:"year"`
	Month    int                `json:"month"`
	Label    string             `json:"label"`
	Headers  []string           `json:"headers"`
	Cells    []calendar.DayView `json:"cells"`
	Selected string             `json:"selected"`
	Today    string             `json:"today"`
	Prev     monthRef           `json:"prev"`
	Next     monthRef           `json:"next"`
}

type confirmedResponse struct {
	Deleted  schedule.DeleteKind `json:"deleted"`
	TargetID string              `json:"targetId"`
}

type cancelledResponse struct {
	Cancelled bool `json:"cancelled"`
}

func (s *Server) today() string {
	return timemath.FormatDate(s.now())
}

func (s *Server) handleListStudents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, studentsResponse{Students: s.book.Students().List()})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var form model.StudentForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "リクエストの形式が正しくありません。")
		return
	}

	student, err := s.book.Students().Create(r.Context(), form)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, studentResponse{Student: student})
}

func (s *Server) handleRequestStudentDelete(w http.ResponseWriter, r *http.Request) {
	c, err := s.book.RequestDelete(schedule.DeleteStudent, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleProgress reports a student's bookings for a month.
//
// GET /api/students/{id}/progress?year=2024&month=6 (defaults: current month)
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := parseIntDefault(q.Get("month"), int(now.Month()))

	p, err := s.book.Query().Progress(chi.URLParam(r, "id"), year, time.Month(month))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreateBooking books the selected student's lesson on the selected
// date. The end time is derived from the student's lesson length.
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "リクエストの形式が正しくありません。")
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "validation", "生徒を選択してください。")
		return
	}

	booking, err := s.book.Bookings().BookStudent(r.Context(), req.StudentID, req.Date, req.StartTime)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingResponse{Booking: booking})
}

func (s *Server) handleRequestBookingDelete(w http.ResponseWriter, r *http.Request) {
	c, err := s.book.RequestDelete(schedule.DeleteBooking, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	c, err := s.book.ConfirmDelete(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmedResponse{Deleted: c.Kind, TargetID: c.TargetID})
}

// handleCancel declines a pending delete. Declining is a successful no-op,
// whether or not the token was still pending.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	dropped := s.book.CancelDelete(chi.URLParam(r, "token"))
	writeJSON(w, http.StatusOK, cancelledResponse{Cancelled: dropped})
}

// handleAgenda returns one day's bookings.
//
// GET /api/agenda?date=2024-06-03 (default: today)
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.today()
	}
	if _, err := timemath.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "日付はYYYY-MM-DD形式で指定してください。")
		return
	}
	writeJSON(w, http.StatusOK, agendaResponse{Date: date, Entries: s.book.Query().AgendaFor(date)})
}

// handleCalendar returns the month grid with booking, selection and today
// markers.
//
// GET /api/calendar?year=2024&month=6&selected=2024-06-03
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := time.Month(parseIntDefault(q.Get("month"), int(now.Month())))
	if month < time.January || month > time.December || year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "validation", "年月の指定が正しくありません。")
		return
	}

	today := s.today()
	selected := q.Get("selected")
	if selected == "" {
		selected = today
	}

	weekStart := s.cfg.WeekStartDay()
	markers := s.book.Query().MonthMarkers(year, month)
	cells := calendar.Overlay(year, month, calendar.Layout(year, month, weekStart), func(date string) bool {
		d, err := timemath.ParseDate(date)
		return err == nil && markers[d.Day()]
	}, selected, today)

	py, pm := calendar.Shift(year, month, -1)
	ny, nm := calendar.Shift(year, month, 1)

	writeJSON(w, http.StatusOK, calendarResponse{
		Year:     year,
		Month:    int(month),
		Label:    calendar.Label(year, month),
		Headers:  calendar.WeekdayHeaders(model.Weekdays, weekStart),
		Cells:    cells,
		Selected: selected,
		Today:    today,
		Prev:     monthRef{Year: py, Month: int(pm)},
		Next:     monthRef{Year: ny, Month: int(nm)},
	})
}

// handleICS exports every booking as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	names := make(map[string]string)
	for _, st := range s.book.Students().List() {
		names[st.ID] = st.Name
	}

	host := r.Host
	if host == "" {
		host = "lessoncal.local"
	}
	body, err := ics.Export(s.book.Bookings().All(), func(id string) (string, bool) {
		n, ok := names[id]
		return n, ok
	}, ics.ExportConfig{
		Name:      ics.SafeCalendarName(s.cfg.CalendarName),
		UIDDomain: host,
		Now:       s.now(),
	})
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "internal", "エクスポートに失敗しました。")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lessons.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
