package terminal

import "regexp"

// promptTemplate is emitted by the shell's PS1 so that the session's pty
// read loop (via findPrompt) can reliably locate command boundaries. The
// exact whitespace between the markers and the captured fields is
// load-bearing: promptRegexp depends on it.
const promptTemplate = "[CMD_BEGIN]\n\\u@\\h:\\w\n[CMD_END]"

// promptRegexp matches a rendered prompt and captures any embedded exit
// status, the user, host, and working directory.
var promptRegexp = regexp.MustCompile(`\[CMD_BEGIN\]\s*(.*?)\s*([a-z0-9_-]*)@([a-zA-Z0-9.-]*):(.+)\s*\[CMD_END\]`)

// promptMatch is the parsed form of a matched prompt.
type promptMatch struct {
	ExitStatus string
	User       string
	Host       string
	CWD        string
	// Start/End are byte offsets into the buffer the match was found in.
	Start, End int
}

// findPrompt searches buf for the prompt sentinel and returns the match
// along with the bytes that preceded it (the command's output), or ok=false
// if no complete prompt is present yet.
func findPrompt(buf []byte) (m promptMatch, output []byte, ok bool) {
	loc := promptRegexp.FindSubmatchIndex(buf)
	if loc == nil {
		return promptMatch{}, nil, false
	}
	m = promptMatch{
		ExitStatus: string(buf[loc[2]:loc[3]]),
		User:       string(buf[loc[4]:loc[5]]),
		Host:       string(buf[loc[6]:loc[7]]),
		CWD:        string(buf[loc[8]:loc[9]]),
		Start:      loc[0],
		End:        loc[1],
	}
	return m, buf[:loc[0]], true
}
