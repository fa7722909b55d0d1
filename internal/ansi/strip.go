// Package ansi strips terminal control sequences from ttyrec payloads so
// diagnostic tooling can tell "this record only repositioned the cursor
// or set a title" from "this record actually changed visible content."
// The scanner is grounded on the teacher's terminal-output activity
// filter, generalized from a websocket-forwarding debounce check into a
// standalone classifier any caller can use.
package ansi

import "bytes"

// ignoredPrefixes are whole-chunk introducers the teacher's filter
// short-circuits on: private-mode CSI sequences and OSC 10/11
// foreground/background colour sequences are common enough (every prompt
// redraw) that a payload beginning with one is classified as not
// meaningful, whatever follows it.
var ignoredPrefixes = [][]byte{
	[]byte("\x1b[?"),
	[]byte("\x1b[>"),
	[]byte("\x1b]10;"),
	[]byte("\x1b]11;"),
}

// Strip removes ANSI/VT escape sequences (CSI, OSC, DCS) from data,
// leaving the plain bytes a terminal would actually render as text.
// Line-feed, carriage-return, and tab are kept; other C0 control bytes
// and DEL are dropped along with the escape sequences.
//
// Rather than a byte-at-a-time automaton, this walks data with an index
// cursor: on ESC it hands off to escapeLen to compute how many bytes the
// whole sequence occupies (including its terminator) and jumps past it in
// one step, instead of threading a state variable through every byte.
func Strip(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		b := data[i]
		switch {
		case b == 0x1b:
			i += escapeLen(data[i:])
		case isDroppedControl(b):
			i++
		default:
			out = append(out, b)
			i++
		}
	}
	return out
}

// isDroppedControl reports whether b is a C0 control byte or DEL that
// Strip discards outright rather than passing through.
func isDroppedControl(b byte) bool {
	if b == '\n' || b == '\r' || b == '\t' {
		return false
	}
	return b < 0x20 || b == 0x7f
}

// escapeLen returns how many bytes the escape sequence starting at seq[0]
// (always ESC) occupies, terminator included. A lone trailing ESC
// consumes just that byte; any introducer other than CSI, OSC or DCS is
// treated as a two-byte escape (ESC plus one byte).
func escapeLen(seq []byte) int {
	if len(seq) < 2 {
		return 1
	}
	switch seq[1] {
	case '[':
		return 2 + csiTailLen(seq[2:])
	case ']':
		return 2 + stringTailLen(seq[2:], true)
	case 'P':
		return 2 + stringTailLen(seq[2:], false)
	default:
		return 2
	}
}

// csiTailLen scans past a CSI sequence's parameter/intermediate bytes to
// its single final byte (0x40-0x7e), returning the tail length including
// that byte. A CSI sequence that runs off the end of the buffer consumes
// everything remaining.
func csiTailLen(tail []byte) int {
	for i, b := range tail {
		if b >= 0x40 && b <= 0x7e {
			return i + 1
		}
	}
	return len(tail)
}

// stringTailLen scans a string-terminated sequence (OSC or DCS) for its
// terminator. Both accept ST (ESC \); OSC additionally accepts a bare BEL,
// the older xterm convention many recordings still use for title-setting.
// The returned length includes the terminator bytes; a sequence that never
// terminates before the buffer ends consumes everything remaining.
func stringTailLen(tail []byte, acceptBell bool) int {
	for i := 0; i < len(tail); i++ {
		if acceptBell && tail[i] == 0x07 {
			return i + 1
		}
		if tail[i] == 0x1b && i+1 < len(tail) && tail[i+1] == '\\' {
			return i + 2
		}
	}
	return len(tail)
}

// IsMeaningful reports whether payload contains any visible, non-space
// content once control sequences are stripped, and doesn't begin with one
// of the ignored whole-chunk prefixes (a private-mode CSI sequence such as
// a cursor-visibility toggle, or an OSC 10/11 colour sequence).
//
// Classification works directly on stripped bytes rather than decoding
// them as UTF-8 runes: ttyrec payloads are arbitrary terminal output, not
// guaranteed-valid text, and a byte-range check treats any non-ASCII byte
// as potentially meaningful multi-byte content instead of risking a
// silent U+FFFD replacement masking real output.
func IsMeaningful(payload []byte) bool {
	for _, prefix := range ignoredPrefixes {
		if bytes.HasPrefix(payload, prefix) {
			return false
		}
	}

	for _, b := range Strip(payload) {
		// Strip has already dropped DEL and the C0 controls; whatever
		// remains above a bare space is either printable ASCII or a byte
		// belonging to a multi-byte (non-ASCII) character.
		if b > 0x20 {
			return true
		}
	}
	return false
}
