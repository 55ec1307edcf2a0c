package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"scolarite/internal/adapters/backend"
	"scolarite/internal/adapters/http/middleware"
	"scolarite/internal/application/binding"
	"scolarite/internal/application/listutil"
	"scolarite/internal/domain/draft"
	"scolarite/internal/domain/fault"
)

// messages are the French notices of one CRUD screen.
type messages struct {
	Created, Updated, Deleted string
	DeleteFailed, LoadFailed  string
	ConfirmDelete             string
}

// screen is one paginated CRUD table over the backend.
// Screens differ only by their source, filter, columns and form.
type screen[T any, F comparable] struct {
	name       string // binding registry screen name
	listPath   string // where the table is shown
	base       string // prefix of the form and delete routes
	title      string
	addLabel   string
	formTitle  [2]string // create, edit
	form       string    // form page template
	columns    []binding.Column[T]
	id         func(T) string
	source     func(api *backend.Client) binding.Source[T, F]
	filterKeys []string
	filter     func(listutil.Request) F
	filterView func(F) map[string]string
	fields     []string
	newDraft   func() draft.Draft
	draftOf    func(T) draft.Draft
	submit     func(ctx context.Context, s *server, api *backend.Client, d draft.Draft) (binding.Mutation, error)
	formData   func(ctx context.Context, api *backend.Client) (any, error)
	msgs       messages
}

// mount returns the request browser's binding for this screen, mounting it on first visit.
func (sc *screen[T, F]) mount(s *server, r *http.Request) *binding.Binding[T, F] {
	key := binding.Key{Browser: middleware.BrowserID(r.Context()), Screen: sc.name}
	api := s.apiFor(r)
	return binding.Mount(s.Bindings, key, func() *binding.Binding[T, F] {
		return binding.New(sc.name, sc.source(api), binding.Params[F]{PageSize: binding.DefaultPageSize})
	})
}

func (sc *screen[T, F]) register(mux *http.ServeMux, s *server) {
	mux.HandleFunc("GET "+sc.listPath, sc.handleList(s))
	mux.HandleFunc("GET "+sc.base+"/new", sc.handleNew(s))
	mux.HandleFunc("POST "+sc.base, sc.handleSave(s))
	mux.HandleFunc("GET "+sc.base+"/{id}/edit", sc.handleEdit(s))
	mux.HandleFunc("POST "+sc.base+"/{id}", sc.handleSave(s))
	mux.HandleFunc("GET "+sc.base+"/{id}/delete", sc.handleConfirmDelete(s))
	mux.HandleFunc("POST "+sc.base+"/{id}/delete", sc.handleDelete(s))
}

// row is one rendered table line.
type row struct {
	ID    string
	Cells []string
}

// listView is the body of list.html.
type listView struct {
	Title      string
	AddLabel   string
	ListPath   string
	Base       string
	Screen     string
	Headers    []string
	Rows       []row
	Pager      listutil.Pager
	PageSizes  []int
	Status     string
	Loading    bool
	Error      string
	Filter     map[string]string
	FilterKeys []string
}

// listJSON is the JSON twin of a list screen.
type listJSON[T any] struct {
	Items      []T    `json:"items"`
	TotalCount int    `json:"totalCount"`
	PageIndex  int    `json:"pageIndex"`
	PageSize   int    `json:"pageSize"`
	PageCount  int    `json:"pageCount"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// apply translates list query parameters into binding operations.
// A submitted filter resets the page; otherwise size is applied before page,
// since changing the size resets the page.
func apply[T any, F comparable](b *binding.Binding[T, F], req listutil.Request, filter func(listutil.Request) F) error {
	if req.Submitted {
		if err := b.SubmitFilter(filter(req)); err != nil {
			return err
		}
	} else {
		if req.PageSize > 0 {
			if err := b.SetPageSize(req.PageSize); err != nil {
				return err
			}
		}
		if req.Page >= 0 {
			if err := b.SetPage(req.Page); err != nil {
				return err
			}
		}
	}
	if req.Refresh {
		return b.Refresh()
	}
	return nil
}

// settle waits up to the render wait for the current fetch.
func settle[T any, F comparable](ctx context.Context, s *server, b *binding.Binding[T, F]) binding.State[T, F] {
	ctx, cancel := context.WithTimeout(ctx, s.RenderWait)
	defer cancel()
	st, err := b.Wait(ctx)
	if err != nil {
		slog.Debug("render_before_settled", "error", err)
	}
	return st
}

func (sc *screen[T, F]) handleList(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := sc.mount(s, r)
		req := listutil.ParseRequest(r.URL.Query(), sc.filterKeys...)
		if err := apply(b, req, sc.filter); err != nil {
			if errors.Is(err, binding.ErrClosed) {
				// Unmounted between Mount and apply by a sweep or logout; start over.
				http.Redirect(w, r, r.URL.String(), http.StatusSeeOther)
				return
			}
			internalError(w, err)
			return
		}
		st := settle(r.Context(), s, b)
		if st.Status == binding.Error && fault.IsAuth(st.LastError) {
			s.authFailed(w, r)
			return
		}

		errMsg := ""
		if st.Status == binding.Error {
			errMsg = sc.msgs.LoadFailed
		}
		if !isHTMLRequest(r) {
			code := http.StatusOK
			if st.Status == binding.Error {
				code = http.StatusBadGateway
			}
			writeJSON(w, code, listJSON[T]{
				Items:      st.Items,
				TotalCount: st.TotalCount,
				PageIndex:  st.Params.PageIndex,
				PageSize:   st.Params.PageSize,
				PageCount:  st.PageCount(),
				Status:     st.Status.String(),
				Error:      errMsg,
			})
			return
		}

		pager := listutil.NewPager(st.Params.PageIndex, st.Params.PageSize, st.TotalCount)
		lv := listView{
			Title:      sc.title,
			AddLabel:   sc.addLabel,
			ListPath:   sc.listPath,
			Base:       sc.base,
			Screen:     sc.name,
			Headers:    binding.Headers(sc.columns),
			Pager:      pager,
			PageSizes:  listutil.PageSizeOptions,
			Status:     st.Status.String(),
			Loading:    st.IsLoading,
			Error:      errMsg,
			Filter:     sc.filterView(st.Params.Filter),
			FilterKeys: sc.filterKeys,
		}
		for _, item := range st.Items {
			lv.Rows = append(lv.Rows, row{ID: sc.id(item), Cells: binding.Cells(sc.columns, item)})
		}
		v := view{Title: sc.title, Body: lv}
		if st.IsLoading {
			v.RefreshURL = sc.listPath + "?" + pager.Query(pager.Number())
		}
		s.renderView(w, r, http.StatusOK, "list.html", v)
	}
}

// formView is the body of the form pages.
type formView struct {
	Title   string
	Action  string
	Cancel  string
	Draft   draft.Draft
	Errors  map[string]string
	Error   string
	Options any
}

func (sc *screen[T, F]) action(d draft.Draft) string {
	if d.IsEdit() {
		return sc.base + "/" + url.PathEscape(d.TargetID)
	}
	return sc.base
}

func (sc *screen[T, F]) renderForm(s *server, w http.ResponseWriter, r *http.Request, status int, d draft.Draft, fv formView) {
	fv.Title = sc.formTitle[0]
	if d.IsEdit() {
		fv.Title = sc.formTitle[1]
	}
	fv.Action = sc.action(d)
	fv.Cancel = sc.listPath
	fv.Draft = d
	if sc.formData != nil {
		opts, err := sc.formData(r.Context(), s.apiFor(r))
		if fault.IsAuth(err) {
			s.authFailed(w, r)
			return
		}
		if err != nil {
			slog.Warn("form_options_failed", "screen", sc.name, "error", err)
			if fv.Error == "" {
				fv.Error = "Erreur : " + err.Error()
			}
		}
		fv.Options = opts
	}
	s.render(w, r, status, sc.form, fv.Title, fv)
}

func (sc *screen[T, F]) handleNew(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc.renderForm(s, w, r, http.StatusOK, sc.newDraft(), formView{})
	}
}

// find returns the item with id from the mounted page.
func (sc *screen[T, F]) find(b *binding.Binding[T, F], id string) (T, bool) {
	items := b.Snapshot().Items
	i := slices.IndexFunc(items, func(item T) bool { return sc.id(item) == id })
	if i < 0 {
		var zero T
		return zero, false
	}
	return items[i], true
}

func (sc *screen[T, F]) handleEdit(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := sc.find(sc.mount(s, r), r.PathValue("id"))
		if !ok {
			s.flash(w, r, "error", "❌ Élément introuvable, la liste a peut-être changé.", sc.listPath)
			return
		}
		sc.renderForm(s, w, r, http.StatusOK, sc.draftOf(item), formView{})
	}
}

// handleSave validates the form, then creates or updates through the binding,
// which refetches the current page on success.
func (sc *screen[T, F]) handleSave(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		d := draft.FromForm(r.PostForm, r.PathValue("id"), sc.fields...)
		api := s.apiFor(r)
		mutation, err := sc.submit(r.Context(), s, api, d)
		if err != nil {
			sc.renderForm(s, w, r, http.StatusUnprocessableEntity, d, formView{
				Errors: fault.FieldsOf(err),
				Error:  "Erreur : " + err.Error(),
			})
			return
		}

		b := sc.mount(s, r)
		op, done := b.Create, sc.msgs.Created
		if d.IsEdit() {
			op, done = b.Update, sc.msgs.Updated
		}
		if err := op(r.Context(), mutation); err != nil {
			if fault.IsAuth(err) {
				s.authFailed(w, r)
				return
			}
			status := http.StatusBadGateway
			if k := fault.KindOf(err); k == fault.KindValidation || k == fault.KindConflict {
				status = http.StatusUnprocessableEntity
			}
			sc.renderForm(s, w, r, status, d, formView{
				Errors: fault.FieldsOf(err),
				Error:  "Erreur lors de l'enregistrement : " + err.Error(),
			})
			return
		}
		if !isHTMLRequest(r) {
			writeJSON(w, http.StatusOK, map[string]string{"message": done})
			return
		}
		s.flash(w, r, "success", done, sc.listPath)
	}
}

// confirmView is the body of confirm.html.
type confirmView struct {
	Prompt string
	Action string
	Cancel string
	Label  string
}

func (sc *screen[T, F]) handleConfirmDelete(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		label := ""
		if item, ok := sc.find(sc.mount(s, r), id); ok && len(sc.columns) > 0 {
			label = sc.columns[0].Value(item)
			if len(sc.columns) > 1 {
				label += " " + sc.columns[1].Value(item)
			}
		}
		s.render(w, r, http.StatusOK, "confirm.html", sc.msgs.ConfirmDelete, confirmView{
			Prompt: sc.msgs.ConfirmDelete,
			Action: sc.base + "/" + url.PathEscape(id) + "/delete",
			Cancel: sc.listPath,
			Label:  label,
		})
	}
}

// handleDelete deletes only when the confirmation form answered yes.
// A declined confirmation sends nothing to the backend.
func (sc *screen[T, F]) handleDelete(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		confirmed := r.PostForm.Get("confirm") == "yes"
		deleted, err := sc.mount(s, r).Delete(r.Context(), r.PathValue("id"), func(context.Context) bool { return confirmed })
		switch {
		case fault.IsAuth(err):
			s.authFailed(w, r)
		case err != nil:
			slog.Warn("delete_failed", "screen", sc.name, "error", err)
			if !isHTMLRequest(r) {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": sc.msgs.DeleteFailed})
				return
			}
			s.flash(w, r, "error", sc.msgs.DeleteFailed, sc.listPath)
		case !deleted:
			if !isHTMLRequest(r) {
				writeJSON(w, http.StatusOK, map[string]bool{"deleted": false})
				return
			}
			http.Redirect(w, r, sc.listPath, http.StatusSeeOther)
		default:
			if !isHTMLRequest(r) {
				writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
				return
			}
			s.flash(w, r, "success", sc.msgs.Deleted, sc.listPath)
		}
	}
}
