package dsg

import (
	"fmt"
	"io"
)

// Dump writes a text listing of every region and its written words, four per row.
// name maps a region id to a display name; it may be nil.
func Dump(w io.Writer, f *File, name func(RegionID) string) error {
	if f == nil || f.Header == nil {
		return ErrCorruptFile
	}
	if _, err := fmt.Fprintf(w, "dsg v%d.%d regions=%d\n", f.Header.Major, f.Header.Minor, f.Header.RegionCount); err != nil {
		return err
	}
	for _, r := range f.Regions {
		label := fmt.Sprintf("region%d", r.ID)
		if name != nil {
			label = name(r.ID)
		}
		if _, err := fmt.Fprintf(w, "[%d] %s size=%d used=%d\n", r.ID, label, r.Size, r.Used); err != nil {
			return err
		}
		words := f.Words(r.ID)
		for i := 0; i < len(words); i += 4 {
			end := min(i+4, len(words))
			line := fmt.Sprintf("  %04x:", i*BytesPerWord)
			for _, word := range words[i:end] {
				line += fmt.Sprintf(" %08x", word)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
