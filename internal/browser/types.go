package browser

// Status is the browser session's lifecycle state.
type Status string

const (
	StatusStarted      Status = "started"
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
)

// Action is a tagged union over the verb set of the browser automation
// manager: exactly one of these pointer fields is set per request, mirroring
// the discriminated-union design note (one variant per verb rather than a
// loosely-typed payload bag).
type Action struct {
	Navigate     *NavigateAction     `json:"navigate,omitempty"`
	Click        *ClickAction        `json:"click,omitempty"`
	Input        *InputAction        `json:"input,omitempty"`
	PressKey     *PressKeyAction     `json:"press_key,omitempty"`
	SelectOption *SelectOptionAction `json:"select_option,omitempty"`
	ScrollUp     *ScrollAction       `json:"scroll_up,omitempty"`
	ScrollDown   *ScrollAction       `json:"scroll_down,omitempty"`
	MoveMouse    *MoveMouseAction    `json:"move_mouse,omitempty"`
	View         *ViewAction         `json:"view,omitempty"`
	Screenshot   *ScreenshotAction   `json:"screenshot,omitempty"`
	ConsoleExec  *ConsoleExecAction  `json:"console_exec,omitempty"`
	ConsoleView  *ConsoleViewAction  `json:"console_view,omitempty"`
	Restart      *RestartAction      `json:"restart,omitempty"`
}

type NavigateAction struct {
	URL string `json:"url"`
}

type ClickAction struct {
	Index       *int     `json:"index,omitempty"`
	CoordinateX *float64 `json:"coordinate_x,omitempty"`
	CoordinateY *float64 `json:"coordinate_y,omitempty"`
}

type InputAction struct {
	Index       *int     `json:"index,omitempty"`
	CoordinateX *float64 `json:"coordinate_x,omitempty"`
	CoordinateY *float64 `json:"coordinate_y,omitempty"`
	Text        string   `json:"text"`
	PressEnter  bool     `json:"press_enter,omitempty"`
}

type PressKeyAction struct {
	Key string `json:"key"`
}

type SelectOptionAction struct {
	Index  int `json:"index"`
	Option int `json:"option"`
}

type ScrollAction struct {
	ToTop    bool `json:"to_top,omitempty"`
	ToBottom bool `json:"to_bottom,omitempty"`
}

type MoveMouseAction struct {
	CoordinateX float64 `json:"coordinate_x"`
	CoordinateY float64 `json:"coordinate_y"`
}

type ViewAction struct {
	Reload bool `json:"reload,omitempty"`
}

type ScreenshotAction struct {
	File   string `json:"file"`
	Reload bool   `json:"reload,omitempty"`
}

type ConsoleExecAction struct {
	JavaScript string `json:"javascript"`
}

type ConsoleViewAction struct {
	MaxLines int `json:"max_lines,omitempty"`
}

type RestartAction struct {
	URL string `json:"url"`
}

// ActionRequest wraps an Action with the optional upload handles for the
// two screenshots captured after every action.
type ActionRequest struct {
	Action                      Action  `json:"action"`
	ScreenshotPresignedURL      *string `json:"screenshot_presigned_url,omitempty"`
	CleanScreenshotPresignedURL *string `json:"clean_screenshot_presigned_url,omitempty"`
}

// ActionResult is the outcome of one dispatched action.
type ActionResult struct {
	URL                     string `json:"url"`
	Title                   string `json:"title"`
	Result                  string `json:"result,omitempty"`
	Error                   string `json:"error,omitempty"`
	ScreenshotUploaded      bool   `json:"screenshot_uploaded"`
	CleanScreenshotUploaded bool   `json:"clean_screenshot_uploaded"`
	CleanScreenshotPath     string `json:"clean_screenshot_path,omitempty"`
	Elements                string `json:"elements,omitempty"`
	Markdown                string `json:"markdown,omitempty"`
	PixelsAbove             int    `json:"pixels_above"`
	PixelsBelow             int    `json:"pixels_below"`
}

// kind identifies which verb an Action carries, for dispatch and logging.
func (a Action) kind() string {
	switch {
	case a.Navigate != nil:
		return "navigate"
	case a.Click != nil:
		return "click"
	case a.Input != nil:
		return "input"
	case a.PressKey != nil:
		return "press_key"
	case a.SelectOption != nil:
		return "select_option"
	case a.ScrollUp != nil:
		return "scroll_up"
	case a.ScrollDown != nil:
		return "scroll_down"
	case a.MoveMouse != nil:
		return "move_mouse"
	case a.View != nil:
		return "view"
	case a.Screenshot != nil:
		return "screenshot"
	case a.ConsoleExec != nil:
		return "console_exec"
	case a.ConsoleView != nil:
		return "console_view"
	case a.Restart != nil:
		return "restart"
	default:
		return ""
	}
}
