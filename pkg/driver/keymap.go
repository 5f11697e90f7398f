package driver

// Key describes what a hardware key code produces. Printable keys carry the
// base character and its shifted form; named keys carry only a name.
type Key struct {
	Name     string
	Char     string
	Shifted  string
	Modifier bool
}

// Printable reports whether the key produces a character when typed.
func (k Key) Printable() bool {
	return k.Char != ""
}

// String returns the character the key produces under the given shift state,
// or the key name for non-printable keys.
func (k Key) String(shift bool) string {
	if !k.Printable() {
		return k.Name
	}
	if shift && k.Shifted != "" {
		return k.Shifted
	}
	return k.Char
}

// Keymap resolves hardware key codes. Unknown codes return ok=false and are
// expected to be skipped by callers.
type Keymap interface {
	Lookup(code uint16) (Key, bool)
}

// MapKeymap is a plain table-backed keymap.
type MapKeymap map[uint16]Key

// Lookup returns the key registered for code.
func (m MapKeymap) Lookup(code uint16) (Key, bool) {
	k, ok := m[code]
	return k, ok
}

// DefaultKeymap returns a US-layout table keyed by the libuiohook scancodes
// the hook source reports.
func DefaultKeymap() MapKeymap {
	m := MapKeymap{
		0x0001: {Name: "escape"},
		0x000E: {Name: "backspace"},
		0x000F: {Name: "tab"},
		0x001C: {Name: "enter"},
		0x001D: {Name: "ctrl", Modifier: true},
		0x002A: {Name: "shift", Modifier: true},
		0x0036: {Name: "shift", Modifier: true},
		0x0038: {Name: "alt", Modifier: true},
		0x0E1D: {Name: "ctrl", Modifier: true},
		0x0E38: {Name: "alt", Modifier: true},
		0x0E5B: {Name: "cmd", Modifier: true},
		0x0E5C: {Name: "cmd", Modifier: true},
		0x003A: {Name: "capslock"},
		0x0039: {Name: "space", Char: " ", Shifted: " "},
		0xE048: {Name: "up"},
		0xE050: {Name: "down"},
		0xE04B: {Name: "left"},
		0xE04D: {Name: "right"},
		0xE047: {Name: "home"},
		0xE04F: {Name: "end"},
		0xE049: {Name: "pageup"},
		0xE051: {Name: "pagedown"},
		0xE053: {Name: "delete"},

		0x0002: {Name: "1", Char: "1", Shifted: "!"},
		0x0003: {Name: "2", Char: "2", Shifted: "@"},
		0x0004: {Name: "3", Char: "3", Shifted: "#"},
		0x0005: {Name: "4", Char: "4", Shifted: "$"},
		0x0006: {Name: "5", Char: "5", Shifted: "%"},
		0x0007: {Name: "6", Char: "6", Shifted: "^"},
		0x0008: {Name: "7", Char: "7", Shifted: "&"},
		0x0009: {Name: "8", Char: "8", Shifted: "*"},
		0x000A: {Name: "9", Char: "9", Shifted: "("},
		0x000B: {Name: "0", Char: "0", Shifted: ")"},
		0x000C: {Name: "-", Char: "-", Shifted: "_"},
		0x000D: {Name: "=", Char: "=", Shifted: "+"},

		0x0010: {Name: "q", Char: "q", Shifted: "Q"},
		0x0011: {Name: "w", Char: "w", Shifted: "W"},
		0x0012: {Name: "e", Char: "e", Shifted: "E"},
		0x0013: {Name: "r", Char: "r", Shifted: "R"},
		0x0014: {Name: "t", Char: "t", Shifted: "T"},
		0x0015: {Name: "y", Char: "y", Shifted: "Y"},
		0x0016: {Name: "u", Char: "u", Shifted: "U"},
		0x0017: {Name: "i", Char: "i", Shifted: "I"},
		0x0018: {Name: "o", Char: "o", Shifted: "O"},
		0x0019: {Name: "p", Char: "p", Shifted: "P"},
		0x001A: {Name: "[", Char: "[", Shifted: "{"},
		0x001B: {Name: "]", Char: "]", Shifted: "}"},
		0x002B: {Name: "\\", Char: "\\", Shifted: "|"},

		0x001E: {Name: "a", Char: "a", Shifted: "A"},
		0x001F: {Name: "s", Char: "s", Shifted: "S"},
		0x0020: {Name: "d", Char: "d", Shifted: "D"},
		0x0021: {Name: "f", Char: "f", Shifted: "F"},
		0x0022: {Name: "g", Char: "g", Shifted: "G"},
		0x0023: {Name: "h", Char: "h", Shifted: "H"},
		0x0024: {Name: "j", Char: "j", Shifted: "J"},
		0x0025: {Name: "k", Char: "k", Shifted: "K"},
		0x0026: {Name: "l", Char: "l", Shifted: "L"},
		0x0027: {Name: ";", Char: ";", Shifted: ":"},
		0x0028: {Name: "'", Char: "'", Shifted: "\""},
		0x0029: {Name: "`", Char: "`", Shifted: "~"},

		0x002C: {Name: "z", Char: "z", Shifted: "Z"},
		0x002D: {Name: "x", Char: "x", Shifted: "X"},
		0x002E: {Name: "c", Char: "c", Shifted: "C"},
		0x002F: {Name: "v", Char: "v", Shifted: "V"},
		0x0030: {Name: "b", Char: "b", Shifted: "B"},
		0x0031: {Name: "n", Char: "n", Shifted: "N"},
		0x0032: {Name: "m", Char: "m", Shifted: "M"},
		0x0033: {Name: ",", Char: ",", Shifted: "<"},
		0x0034: {Name: ".", Char: ".", Shifted: ">"},
		0x0035: {Name: "/", Char: "/", Shifted: "?"},
	}

	// F1..F12
	for i := uint16(0); i < 10; i++ {
		m[0x003B+i] = Key{Name: fnName(int(i) + 1)}
	}
	m[0x0057] = Key{Name: "f11"}
	m[0x0058] = Key{Name: "f12"}

	return m
}

func fnName(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "f" + digits[n:n+1]
	}
	return "f1" + digits[n-10:n-9]
}
