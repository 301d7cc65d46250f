package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moffa90/go-copier/copier"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
)

// Direction infers the transfer direction from the file at path: a missing
// file is dumped into, an existing one is uploaded.
func Direction(path string) (transfer.Direction, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return transfer.Write, nil
	case os.IsNotExist(err):
		return transfer.Read, nil
	default:
		return transfer.Read, &protocol.TransferIOError{Path: path, Op: "stat", Err: err}
	}
}

// Part is one unit of a multi-part plan.
type Part struct {
	// Name is the unit name stored by the copier
	Name string

	// Size is the unit size in bytes
	Size int64

	// Offset is where the unit starts in the concatenated image
	Offset int64

	// Path is the source file of the unit, empty when cut from one file
	Path string
}

// MultiPartPlan is an ordered list of units covering an image.
type MultiPartPlan struct {
	Parts []Part
}

// Size returns the total size of the plan.
func (p MultiPartPlan) Size() int64 {
	var n int64
	for _, part := range p.Parts {
		n += part.Size
	}
	return n
}

// Units returns the plan as adapter parts.
func (p MultiPartPlan) Units() []copier.Part {
	out := make([]copier.Part, len(p.Parts))
	for i, part := range p.Parts {
		out[i] = copier.Part{Name: part.Name, Size: part.Size}
	}
	return out
}

// Namer names unit index of an image called base, mbit megabits large.
type Namer func(base string, mbit int, index int) string

// GDNamer produces Game Doctor unit names: "SF", the size in megabits, the
// start of the image name and a unit letter, at most eight characters, then
// the ".078" extension.
func GDNamer(base string, mbit int, index int) string {
	base = strings.TrimSuffix(filepath.Base(base), filepath.Ext(base))

	var clean strings.Builder
	for _, c := range strings.ToUpper(base) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			clean.WriteRune(c)
		}
	}
	name := clean.String()
	if name == "" {
		name = "ROM"
	}

	prefix := fmt.Sprintf("%s%d", protocol.GDNamePrefix, mbit)
	if avail := protocol.GDBaseNameLen - len(prefix) - 1; len(name) > avail {
		name = name[:max(avail, 0)]
	}
	return prefix + name + string(rune('A'+index%26)) + protocol.GDUnitSuffix
}

func megabits(size int64) int {
	return int((size + 0x1FFFF) >> 17)
}

// Plan cuts an image of size bytes into units of at most limit bytes.
func Plan(name string, size, limit int64, namer Namer) (MultiPartPlan, error) {
	if size <= 0 {
		return MultiPartPlan{}, &protocol.ProtocolSizeError{Operation: "plan", Size: size, Reason: "empty image"}
	}
	if limit <= 0 {
		return MultiPartPlan{}, fmt.Errorf("unit limit must be positive, got %d", limit)
	}
	if namer == nil {
		namer = GDNamer
	}

	mbit := megabits(size)
	units := copier.SplitParts(size, limit, func(i int) string {
		return namer(name, mbit, i)
	})

	var plan MultiPartPlan
	var off int64
	for _, u := range units {
		plan.Parts = append(plan.Parts, Part{Name: u.Name, Size: u.Size, Offset: off})
		off += u.Size
	}
	return plan, nil
}

// PlanFiles builds a plan with one unit per file, in order. Every file must
// fit a unit.
func PlanFiles(paths []string, limit int64, namer Namer) (MultiPartPlan, error) {
	if len(paths) == 0 {
		return MultiPartPlan{}, fmt.Errorf("no source files")
	}
	if namer == nil {
		namer = GDNamer
	}

	sizes := make([]int64, len(paths))
	var total int64
	for i, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return MultiPartPlan{}, &protocol.TransferIOError{Path: path, Op: "stat", Err: err}
		}
		if fi.Size() <= 0 || fi.Size() > limit {
			return MultiPartPlan{}, &protocol.ProtocolSizeError{
				Operation: "plan " + filepath.Base(path),
				Size:      fi.Size(),
				Reason:    fmt.Sprintf("unit must be 1-%d bytes", limit),
			}
		}
		sizes[i] = fi.Size()
		total += fi.Size()
	}

	mbit := megabits(total)
	var plan MultiPartPlan
	var off int64
	for i, path := range paths {
		plan.Parts = append(plan.Parts, Part{
			Name:   namer(paths[0], mbit, i),
			Size:   sizes[i],
			Offset: off,
			Path:   path,
		})
		off += sizes[i]
	}
	return plan, nil
}
