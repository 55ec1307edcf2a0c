package web

import (
	"encoding/csv"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"scolarite/internal/adapters/http/middleware"
	"scolarite/internal/application/orchestrators"
	"scolarite/internal/application/projections"
	"scolarite/internal/domain/contact"
	"scolarite/internal/domain/draft"
	"scolarite/internal/domain/fault"
	"scolarite/internal/domain/grade"
	"scolarite/internal/domain/session"
)

const statsLoadFailed = "Erreur lors du chargement des données."

// statsView is the body of both statistics pages.
type statsView struct {
	Admin     *projections.GetAdminStatsResult     `json:"admin,omitempty"`
	Scolarite *projections.GetScolariteStatsResult `json:"scolarite,omitempty"`
	Error     string                               `json:"error,omitempty"`
}

// handleStats recomputes the statistics of the signed-in role on every visit.
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	id := middleware.CurrentSession(r.Context()).Identity
	api := s.apiFor(r)

	var (
		v    statsView
		page string
		err  error
	)
	switch id.Role {
	case session.RoleAdmin:
		page = "stats_admin.html"
		var res projections.GetAdminStatsResult
		res, err = projections.QueryAdminStats(r.Context(), projections.GetAdminStatsDeps{API: api})
		v.Admin = &res
	default:
		page = "stats_scolarite.html"
		var res projections.GetScolariteStatsResult
		res, err = projections.QueryScolariteStats(r.Context(), projections.GetScolariteStatsDeps{API: api})
		v.Scolarite = &res
	}

	status := http.StatusOK
	if err != nil {
		if fault.IsAuth(err) {
			s.authFailed(w, r)
			return
		}
		slog.Warn("stats_failed", "role", id.Role, "error", err)
		v = statsView{Error: statsLoadFailed}
		status = http.StatusBadGateway
	}
	if !isHTMLRequest(r) {
		writeJSON(w, status, v)
		return
	}
	s.render(w, r, status, page, "Statistiques", v)
}

// studentView is the body of student.html.
type studentView struct {
	Result   projections.GetStudentGradesResult
	MaxScore int
	Error    string
}

func (s *server) studentGrades(r *http.Request) (projections.GetStudentGradesResult, error) {
	id := middleware.CurrentSession(r.Context()).Identity
	return projections.QueryStudentGrades(r.Context(), projections.GetStudentGradesQuery{
		StudentID: id.SubjectID,
		Period:    r.URL.Query().Get("period"),
	}, projections.GetStudentGradesDeps{API: s.apiFor(r)})
}

// handleStudent shows the signed-in student's grades for the selected semester.
func (s *server) handleStudent(w http.ResponseWriter, r *http.Request) {
	res, err := s.studentGrades(r)
	v := studentView{Result: res, MaxScore: grade.MaxScore}
	status := http.StatusOK
	if err != nil {
		if fault.IsAuth(err) {
			s.authFailed(w, r)
			return
		}
		slog.Warn("student_grades_failed", "error", err)
		v.Error = "Impossible de charger les notes. Réessayez plus tard."
		status = http.StatusBadGateway
	}
	if !isHTMLRequest(r) {
		writeJSON(w, status, map[string]any{
			"period":  res.Period,
			"periods": res.Periods,
			"grades":  res.Grades,
			"mean":    res.Mean.String(),
			"error":   v.Error,
		})
		return
	}
	s.render(w, r, status, "student.html", "Mes notes", v)
}

// handleStudentCSV downloads the filtered grades as notes_<period>.csv.
func (s *server) handleStudentCSV(w http.ResponseWriter, r *http.Request) {
	if !projections.ValidPeriod(r.URL.Query().Get("period")) {
		http.Error(w, "Invalid period", http.StatusBadRequest)
		return
	}
	res, err := s.studentGrades(r)
	if err != nil {
		if fault.IsAuth(err) {
			s.authFailed(w, r)
			return
		}
		slog.Warn("student_grades_failed", "error", err)
		s.flash(w, r, "error", "Impossible de charger les notes. Réessayez plus tard.", studentPath(r.URL.Query().Get("period")))
		return
	}
	// The confirmation shows on the next page the student opens.
	s.Browser.SetFlash(w, middleware.Flash{Kind: "success", Text: "📄 Export CSV réussi !"})
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.CSVFilename()}))
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(res.CSVRecords()); err != nil {
		slog.Warn("csv_write_failed", "error", err)
	}
}

// handleBulletin asks the backend to email the student's grade summary.
func (s *server) handleBulletin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	period := r.PostForm.Get("period")
	id := middleware.CurrentSession(r.Context()).Identity
	err := orchestrators.ExecuteSendBulletin(r.Context(), orchestrators.SendBulletinInput{
		StudentID: id.SubjectID,
		Period:    period,
	}, orchestrators.SendBulletinDeps{API: s.apiFor(r)})
	switch {
	case fault.IsAuth(err):
		s.authFailed(w, r)
	case err != nil:
		slog.Warn("bulletin_failed", "error", err)
		s.flash(w, r, "error", "❌ Échec de l'envoi du bulletin par email.", studentPath(period))
	default:
		s.flash(w, r, "success", "📧 Bulletin envoyé par email !", studentPath(period))
	}
}

func studentPath(period string) string {
	if period == "" || period == projections.AllPeriods {
		return "/student"
	}
	return "/student?" + url.Values{"period": {period}}.Encode()
}

// contactView is the body of contact.html.
type contactView struct {
	Draft  draft.Draft
	Errors map[string]string
	Error  string
}

// handleContactPage shows the contact form prefilled with the signed-in identity.
func (s *server) handleContactPage(w http.ResponseWriter, r *http.Request) {
	id := middleware.CurrentSession(r.Context()).Identity
	s.render(w, r, http.StatusOK, "contact.html", "Contact", contactView{Draft: draft.NewCreate(contact.Prefill(id))})
}

// handleContact sends the message through the server's mail relay.
func (s *server) handleContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	d := draft.FromForm(r.PostForm, "", "name", "email", "message")
	msg, err := contact.FromForm(r.PostForm)
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "contact.html", "Contact", contactView{
			Draft:  d,
			Errors: fault.FieldsOf(err),
			Error:  "Tous les champs sont requis.",
		})
		return
	}
	err = orchestrators.ExecuteSendContact(r.Context(), orchestrators.SendContactInput{Message: msg},
		orchestrators.SendContactDeps{Mailer: s.Mailer, To: s.ContactTo})
	if err != nil {
		slog.Warn("contact_failed", "error", err)
		s.render(w, r, http.StatusBadGateway, "contact.html", "Contact", contactView{
			Draft: d,
			Error: "Une erreur est survenue. Veuillez réessayer.",
		})
		return
	}
	s.flash(w, r, "success", "E-mail envoyé avec succès !", "/contact")
}
