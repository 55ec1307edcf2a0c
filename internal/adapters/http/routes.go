package web

import (
	"context"
	"net/http"

	"scolarite/internal/adapters/backend"
	"scolarite/internal/application/binding"
	"scolarite/internal/application/listutil"
	"scolarite/internal/application/orchestrators"
	"scolarite/internal/application/resources"
	"scolarite/internal/domain/course"
	"scolarite/internal/domain/draft"
	"scolarite/internal/domain/grade"
	"scolarite/internal/domain/session"
	"scolarite/internal/domain/user"
)

// routes registers every screen. Access rules live in access.Routes and are
// enforced by middleware.Guard before any handler runs.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", staticHandler())
	mux.Handle("GET /metrics", s.metricsHandler())
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /auth/google", s.handleGoogleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /theme", s.handleTheme)
	mux.HandleFunc("GET /unauthorized", s.handleUnauthorized)

	usersScreen.register(mux, s)
	studentsScreen.register(mux, s)
	coursesScreen.register(mux, s)
	gradesScreen.register(mux, s)

	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /student", s.handleStudent)
	mux.HandleFunc("GET /student/export.csv", s.handleStudentCSV)
	mux.HandleFunc("POST /student/bulletin", s.handleBulletin)
	mux.HandleFunc("GET /contact", s.handleContactPage)
	mux.HandleFunc("POST /contact", s.handleContact)
	return mux
}

// userFormOptions feed user_form.html.
type userFormOptions struct {
	Roles     []session.Role
	FixedRole bool
}

func userID(u user.User) string { return u.ID }

func userFilterView(f user.Filter) map[string]string {
	return map[string]string{"q": f.Keyword, "role": string(f.Role)}
}

// saveUser registers or updates a user. Registration goes through the
// orchestrator so the school office is notified.
func saveUser(ctx context.Context, s *server, api *backend.Client, d draft.Draft) (binding.Mutation, error) {
	in, err := user.FromDraft(d)
	if err != nil {
		return nil, err
	}
	if d.IsEdit() {
		return func(ctx context.Context) error { return api.UpdateUser(ctx, d.TargetID, in.Changes()) }, nil
	}
	return func(ctx context.Context) error {
		_, err := orchestrators.ExecuteRegisterUser(ctx, orchestrators.RegisterUserInput{User: in}, orchestrators.RegisterUserDeps{
			API:      api,
			Mailer:   s.Mailer,
			NotifyTo: s.ContactTo,
		})
		return err
	}, nil
}

var usersScreen = &screen[user.User, user.Filter]{
	name:       resources.ScreenUsers,
	listPath:   "/admin",
	base:       "/admin/users",
	title:      "👤 Gestion des utilisateurs",
	addLabel:   "Ajouter un utilisateur",
	formTitle:  [2]string{"Ajouter un utilisateur", "Modifier l'utilisateur"},
	form:       "user_form.html",
	columns:    resources.UserColumns,
	id:         userID,
	source:     func(api *backend.Client) binding.Source[user.User, user.Filter] { return resources.UserSource{API: api} },
	filterKeys: []string{"role"},
	filter: func(req listutil.Request) user.Filter {
		role, _ := session.ParseRole(req.Filters["role"])
		return user.Filter{Role: role, Keyword: req.Keyword}
	},
	filterView: userFilterView,
	fields:     user.Fields,
	newDraft:   func() draft.Draft { return draft.NewCreate(map[string]string{"role": string(session.RoleStudent)}) },
	draftOf:    user.DraftOf,
	submit:     saveUser,
	formData: func(context.Context, *backend.Client) (any, error) {
		return userFormOptions{Roles: session.Roles}, nil
	},
	msgs: messages{
		Created:       "✅ Utilisateur ajouté",
		Updated:       "✅ Utilisateur mis à jour",
		Deleted:       "✅ Utilisateur supprimé",
		DeleteFailed:  "❌ Échec de la suppression",
		LoadFailed:    "❌ Erreur lors du chargement",
		ConfirmDelete: "Supprimer cet utilisateur ?",
	},
}

var studentsScreen = &screen[user.User, user.Filter]{
	name:      resources.ScreenStudents,
	listPath:  "/scolarite",
	base:      "/scolarite/students",
	title:     "Liste des étudiants",
	addLabel:  "Ajouter un étudiant",
	formTitle: [2]string{"Ajouter un étudiant", "Modifier l'étudiant"},
	form:      "user_form.html",
	columns:   resources.UserColumns[:3],
	id:        userID,
	source:    func(api *backend.Client) binding.Source[user.User, user.Filter] { return resources.StudentSource{API: api} },
	filter: func(req listutil.Request) user.Filter {
		return user.Filter{Role: session.RoleStudent, Keyword: req.Keyword}
	},
	filterView: userFilterView,
	fields:     user.Fields,
	newDraft:   func() draft.Draft { return draft.NewCreate(map[string]string{"role": string(session.RoleStudent)}) },
	draftOf:    user.DraftOf,
	submit: func(ctx context.Context, s *server, api *backend.Client, d draft.Draft) (binding.Mutation, error) {
		d.Fields["role"] = string(session.RoleStudent)
		return saveUser(ctx, s, api, d)
	},
	formData: func(context.Context, *backend.Client) (any, error) {
		return userFormOptions{Roles: []session.Role{session.RoleStudent}, FixedRole: true}, nil
	},
	msgs: messages{
		Created:       "✅ Étudiant ajouté",
		Updated:       "✅ Étudiant mis à jour",
		Deleted:       "✅ Étudiant supprimé",
		DeleteFailed:  "❌ Erreur lors de la suppression",
		LoadFailed:    "❌ Erreur lors du chargement",
		ConfirmDelete: "Supprimer cet étudiant ?",
	},
}

func courseFilterView(f course.Filter) map[string]string {
	return map[string]string{"q": f.Keyword}
}

func gradeFilterView(f grade.Filter) map[string]string {
	return map[string]string{"q": f.Keyword}
}

var coursesScreen = &screen[course.Course, course.Filter]{
	name:      resources.ScreenCourses,
	listPath:  "/courses",
	base:      "/courses",
	title:     "📚 Gestion des cours",
	addLabel:  "Ajouter un cours",
	formTitle: [2]string{"Ajouter un cours", "Modifier le cours"},
	form:      "course_form.html",
	columns:   resources.CourseColumns,
	id:        func(c course.Course) string { return c.ID },
	source: func(api *backend.Client) binding.Source[course.Course, course.Filter] {
		return resources.CourseSource{API: api}
	},
	filter:     func(req listutil.Request) course.Filter { return course.Filter{Keyword: req.Keyword} },
	filterView: courseFilterView,
	fields:     course.Fields,
	newDraft:   func() draft.Draft { return draft.NewCreate(nil) },
	draftOf:    course.DraftOf,
	submit: func(_ context.Context, _ *server, api *backend.Client, d draft.Draft) (binding.Mutation, error) {
		in, err := course.FromDraft(d)
		if err != nil {
			return nil, err
		}
		if d.IsEdit() {
			return func(ctx context.Context) error { return api.UpdateCourse(ctx, d.TargetID, in) }, nil
		}
		return func(ctx context.Context) error { return api.CreateCourse(ctx, in) }, nil
	},
	msgs: messages{
		Created:       "✅ Cours enregistré",
		Updated:       "✅ Cours enregistré",
		Deleted:       "✅ Cours supprimé",
		DeleteFailed:  "❌ Échec suppression",
		LoadFailed:    "❌ Erreur chargement cours",
		ConfirmDelete: "Êtes-vous sûr de vouloir supprimer ce cours ?",
	},
}

var gradesScreen = &screen[grade.Grade, grade.Filter]{
	name:      resources.ScreenGrades,
	listPath:  "/notes",
	base:      "/notes",
	title:     "Gestion des notes",
	addLabel:  "Ajouter une note",
	formTitle: [2]string{"Ajouter une note", "Modifier la note"},
	form:      "grade_form.html",
	columns:   resources.GradeColumns,
	id:        func(g grade.Grade) string { return g.ID },
	source: func(api *backend.Client) binding.Source[grade.Grade, grade.Filter] {
		return resources.GradeSource{API: api}
	},
	filter:     func(req listutil.Request) grade.Filter { return grade.Filter{Keyword: req.Keyword} },
	filterView: gradeFilterView,
	fields:     grade.Fields,
	newDraft:   func() draft.Draft { return grade.NewDraft(timeNow()) },
	draftOf:    func(g grade.Grade) draft.Draft { return grade.DraftOf(g, timeNow()) },
	submit: func(_ context.Context, _ *server, api *backend.Client, d draft.Draft) (binding.Mutation, error) {
		p, err := grade.FromDraft(d)
		if err != nil {
			return nil, err
		}
		if d.IsEdit() {
			return func(ctx context.Context) error { return api.UpdateGrade(ctx, d.TargetID, p) }, nil
		}
		return func(ctx context.Context) error { return api.CreateGrade(ctx, p) }, nil
	},
	formData: func(ctx context.Context, api *backend.Client) (any, error) {
		return resources.LoadGradeChoices(ctx, api)
	},
	msgs: messages{
		Created:       "✅ Note ajoutée",
		Updated:       "✅ Note mise à jour",
		Deleted:       "✅ Note supprimée",
		DeleteFailed:  "❌ Erreur lors de la suppression",
		LoadFailed:    "❌ Erreur lors du chargement des notes",
		ConfirmDelete: "Supprimer cette note ?",
	},
}
