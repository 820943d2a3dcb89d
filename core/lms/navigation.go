package lms

// Screen names a view of the application.
type Screen string

const (
	ScreenLogin         Screen = "login"
	ScreenDashboard     Screen = "dashboard"
	ScreenCatalog       Screen = "catalog"
	ScreenCourseBuilder Screen = "course-builder"
	ScreenCourseManager Screen = "course-manager"
	ScreenCourseViewer  Screen = "course-viewer"
	ScreenAnalytics     Screen = "analytics"
	ScreenProfile       Screen = "profile"
	ScreenStudents      Screen = "students"
)

// Params is the opaque parameter payload navigation carries along, e.g.
// {"course_id": "..."} for the course viewer.
type Params map[string]interface{}

// View is what a front-end should render: the effective screen after the
// authentication guard, its params, and whether to draw the surrounding
// chrome (the course viewer renders full screen without it).
type View struct {
	Screen     Screen `json:"screen"`
	Params     Params `json:"params,omitempty"`
	Chromeless bool   `json:"chromeless,omitempty"`
}

// NavigateTo sets the current screen and its params atomically.
func (eng *Engine) NavigateTo(screen Screen, params ...Params) {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	eng.screen = screen
	if len(params) > 0 {
		eng.params = params[0]
	} else {
		eng.params = nil
	}
}

func (eng *Engine) CurrentScreen() Screen {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return eng.screen
}

func (eng *Engine) NavParams() Params {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return eng.params
}

// CurrentView resolves the view to render. An unauthenticated engine always
// renders the login screen.
func (eng *Engine) CurrentView() View {
	eng.mu.RLock()
	defer eng.mu.RUnlock()

	if eng.session == nil {
		return View{Screen: ScreenLogin}
	}
	return View{
		Screen:     eng.screen,
		Params:     eng.params,
		Chromeless: eng.screen == ScreenCourseViewer,
	}
}
