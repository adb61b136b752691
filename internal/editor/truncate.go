package editor

// MaxResponseLen bounds the formatted output of view, view_dir,
// find_content and find_file, including the truncation marker appended
// past the cap. The messages of create, write and str_replace and the
// FileInfo contents are not clipped.
const MaxResponseLen = 16000

// TruncatedMessage is appended verbatim when content exceeds a truncation
// budget.
const TruncatedMessage = "<response clipped><NOTE>To save on context only part of this file has been shown to you. You should retry this tool after you have searched inside the file with `grep -n` in order to find the line numbers of what you are looking for.</NOTE>"

// MaybeTruncate clips content to truncateAfter bytes and appends
// TruncatedMessage when content exceeds that budget; content shorter than
// the budget passes through unchanged.
func MaybeTruncate(content string, truncateAfter int) string {
	if truncateAfter <= 0 || len(content) <= truncateAfter {
		return content
	}
	return content[:truncateAfter] + TruncatedMessage
}
