package layout

import (
	"fmt"
	"path"
)

const (
	// IndexFile holds the index header. It is written last.
	IndexFile = "INDEX"
	// LookupFile holds the summary pointer lookup.
	LookupFile = "LOOKUP"
	// NotesFile holds free-text notes and provenance.
	NotesFile = "NOTES.json"

	// LeftArm and RightArm name the sub-stores of a paired store.
	LeftArm  = "left"
	RightArm = "right"
)

// DataFile returns the name of data chunk n.
func DataFile(n int) string { return fmt.Sprintf("data-%06d.bin", n) }

// PointerFile returns the name of the pointer table of chunk n.
func PointerFile(n int) string { return fmt.Sprintf("ptr-%06d.bin", n) }

// QualityFile returns the name of quality chunk n.
func QualityFile(n int) string { return fmt.Sprintf("qual-%06d.bin", n) }

// NameFile returns the name of name chunk n.
func NameFile(n int) string { return fmt.Sprintf("names-%06d.bin", n) }

// NamePointerFile returns the name of the pointer table of name chunk n.
func NamePointerFile(n int) string { return fmt.Sprintf("nameptr-%06d.bin", n) }

// Join returns the path of name inside the store rooted at prefix.
func Join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
