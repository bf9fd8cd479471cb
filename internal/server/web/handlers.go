package web

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"github.com/gorilla/mux"
)

// validationMessage returns the user-facing text of a ValidationError.
func validationMessage(err error) (string, bool) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		return verr.Message, true
	}
	return "", false
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index", pageData{Title: "Home"})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about", pageData{Title: "About"})
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", pageData{Title: "Register"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "register", pageData{Title: "Register", Error: "All fields required."})
		return
	}

	form := map[string]string{"name": r.PostFormValue("name"), "email": r.PostFormValue("email")}
	fail := func(status int, msg string) {
		s.render(w, r, status, "register", pageData{Title: "Register", Error: msg, Form: form})
	}

	user, err := s.accounts.Register(r.Context(), services.RegisterInput{
		Name:          r.PostFormValue("name"),
		Email:         r.PostFormValue("email"),
		MailPassword:  r.PostFormValue("mailPass"),
		LoginPassword: r.PostFormValue("loginPassword"),
	})
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			fail(http.StatusBadRequest, msg)
			return
		}
		if errors.Is(err, common.ErrorDuplicateEmail) {
			fail(http.StatusConflict, "Email already registered.")
			return
		}
		fail(http.StatusInternalServerError, "Server error.")
		return
	}

	if err := s.startSession(w, user.ID); err != nil {
		s.logger.Error(r.Context(), "starting session", "error", err)
		fail(http.StatusInternalServerError, "Server error.")
		return
	}

	http.Redirect(w, r, "/reminders", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	fail := func(status int, msg string) {
		s.render(w, r, status, "login", pageData{Title: "Login", Error: msg, Form: map[string]string{"email": email}})
	}

	if email == "" || password == "" {
		fail(http.StatusBadRequest, "Email and password required.")
		return
	}

	user, err := s.accounts.VerifyLogin(r.Context(), email, password)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		fail(http.StatusUnauthorized, "No account found with that email.")
		return
	case errors.Is(err, common.ErrorBadCredentials):
		fail(http.StatusUnauthorized, "Wrong password. Please try again.")
		return
	case err != nil:
		fail(http.StatusInternalServerError, "Server error.")
		return
	}

	if err := s.startSession(w, user.ID); err != nil {
		s.logger.Error(r.Context(), "starting session", "error", err)
		fail(http.StatusInternalServerError, "Server error.")
		return
	}

	http.Redirect(w, r, "/reminders", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request, sess Session) {
	list, err := s.reminders.ListActive(r.Context(), sess.User.ID)
	if err != nil {
		s.render(w, r, http.StatusInternalServerError, "reminders", pageData{Title: "Reminders", Error: "Failed to load."})
		return
	}
	s.render(w, r, http.StatusOK, "reminders", pageData{Title: "Reminders", Reminders: list})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, sess Session) {
	id := mux.Vars(r)["id"]
	if err := s.reminders.SoftDelete(r.Context(), id, sess.User.ID); err != nil {
		s.logger.Warn(r.Context(), "delete failed", "reminder_id", id, "error", err)
	}
	http.Redirect(w, r, "/reminders", http.StatusSeeOther)
}

func (s *Server) handleScheduleForm(w http.ResponseWriter, r *http.Request, sess Session) {
	s.render(w, r, http.StatusOK, "schedule", pageData{
		Title:   "Schedule",
		Success: r.URL.Query().Get("success") == "1",
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request, sess Session) {
	_ = r.ParseForm()
	in := services.ScheduleInput{
		Message:     r.PostFormValue("message"),
		ScheduledAt: r.PostFormValue("datetime"),
		Recipients:  r.PostFormValue("email"),
	}

	if _, err := s.reminders.Schedule(r.Context(), sess.User.ID, in); err != nil {
		status, msg := http.StatusInternalServerError, "Server error scheduling."
		if vmsg, ok := validationMessage(err); ok {
			status, msg = http.StatusBadRequest, vmsg
		}
		s.render(w, r, status, "schedule", pageData{
			Title: "Schedule",
			Error: msg,
			Form:  map[string]string{"message": in.Message, "datetime": in.ScheduledAt, "email": in.Recipients},
		})
		return
	}

	http.Redirect(w, r, "/schedule?success=1", http.StatusSeeOther)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess Session) {
	url, err := s.exporter.Export(r.Context(), sess.User.ID)
	if err != nil {
		s.logger.Error(r.Context(), "export failed", "user_id", sess.User.ID, "error", err)
		list, _ := s.reminders.ListActive(r.Context(), sess.User.ID)
		s.render(w, r, http.StatusBadGateway, "reminders", pageData{Title: "Reminders", Reminders: list, Error: "Export failed."})
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
