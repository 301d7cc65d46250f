package session

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/moffa90/go-copier/copier"
	"github.com/moffa90/go-copier/header"
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
)

// HeaderFixer builds the copier header of a freshly dumped image.
type HeaderFixer interface {
	Fix(dump io.ReaderAt, size int64) ([]byte, error)
}

// Runner drives whole transfers between files and one copier: it opens and
// guards the files, builds the image description and hands it to the
// family adapter.
type Runner struct {
	adapter copier.Adapter
	eng     *transfer.Engine
	port    port.Port
	fixer   HeaderFixer
	namer   Namer
	log     transfer.Logger

	// sink wraps the destination file of a dump
	sink func(*os.File) io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithFixer replaces the header fixer used after ROM dumps. A nil fixer
// leaves the reserved header bytes zeroed.
func WithFixer(f HeaderFixer) Option {
	return func(r *Runner) {
		r.fixer = f
	}
}

// WithNamer replaces the unit namer used when splitting images.
func WithNamer(n Namer) Option {
	return func(r *Runner) {
		if n != nil {
			r.namer = n
		}
	}
}

// NewRunner creates a runner for family on p.
func NewRunner(family copier.Family, p port.Port, eng *transfer.Engine, opts ...Option) (*Runner, error) {
	if eng == nil {
		eng = transfer.New()
	}
	a, err := copier.New(family, p, eng)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		adapter: a,
		eng:     eng,
		port:    p,
		fixer:   header.Fixer{},
		namer:   GDNamer,
		log:     eng.Logger(),
		sink:    func(f *os.File) io.Writer { return f },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Adapter returns the family adapter.
func (r *Runner) Adapter() copier.Adapter {
	return r.adapter
}

// ROM dumps the cartridge into path when it does not exist, and uploads
// path otherwise.
func (r *Runner) ROM(ctx context.Context, path string) (*transfer.Session, error) {
	dir, err := Direction(path)
	if err != nil {
		return nil, err
	}
	if dir == transfer.Write {
		return r.WriteROM(ctx, path)
	}
	return r.ReadROM(ctx, path)
}

// SRAM dumps the save RAM into path when it does not exist, and restores
// it from path otherwise.
func (r *Runner) SRAM(ctx context.Context, path string) (*transfer.Session, error) {
	dir, err := Direction(path)
	if err != nil {
		return nil, err
	}
	if dir == transfer.Write {
		return r.WriteSRAM(ctx, path)
	}
	return r.ReadSRAM(ctx, path)
}

// ReadROM dumps the cartridge into a new file at path. The file starts with
// the family header when it has one, rebuilt from the dump. On any failure
// the file is removed.
func (r *Runner) ReadROM(ctx context.Context, path string) (*transfer.Session, error) {
	return r.dump(ctx, copier.ReadROM, path, func(s *transfer.Session, w io.Writer) (int64, error) {
		return r.adapter.ReadROM(ctx, s, w)
	})
}

// ReadSRAM dumps the save RAM into a new file at path.
func (r *Runner) ReadSRAM(ctx context.Context, path string) (*transfer.Session, error) {
	return r.dump(ctx, copier.ReadSRAM, path, func(s *transfer.Session, w io.Writer) (int64, error) {
		return r.adapter.ReadSRAM(ctx, s, w)
	})
}

func (r *Runner) dump(ctx context.Context, op copier.Operation, path string, read func(*transfer.Session, io.Writer) (int64, error)) (*transfer.Session, error) {
	family := r.adapter.Family()
	if !r.adapter.Supports(op) {
		return nil, fmt.Errorf("%s %s: %w", family, op, protocol.ErrUnsupported)
	}

	s := r.eng.NewSession(string(family), transfer.Read, path, r.port)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return s, r.fail(s, &protocol.TransferIOError{Path: path, Op: "create", Err: err})
	}
	guard := NewGuard(path, f)
	defer func() {
		if err := guard.Run(); err != nil {
			r.log.Error("failed to clean up", "path", path, "error", err)
		}
	}()

	var hdrLen int64
	if op == copier.ReadROM {
		hdrLen = int64(r.adapter.HeaderLen())
	}
	if hdrLen > 0 {
		if _, err := f.Write(make([]byte, hdrLen)); err != nil {
			return s, r.fail(s, &protocol.TransferIOError{Path: path, Op: "write", Err: err})
		}
	}

	r.log.Info("transfer started", "session", s.ID, "family", family, "operation", op, "path", path)
	n, err := read(s, r.sink(f))
	if err != nil {
		return s, r.fail(s, err)
	}

	if hdrLen > 0 && r.fixer != nil {
		hdr, err := r.fixer.Fix(io.NewSectionReader(f, hdrLen, n), n)
		if err != nil {
			return s, r.fail(s, fmt.Errorf("failed to rebuild header: %w", err))
		}
		if int64(len(hdr)) > hdrLen {
			hdr = hdr[:hdrLen]
		}
		if _, err := f.WriteAt(hdr, 0); err != nil {
			return s, r.fail(s, &protocol.TransferIOError{Path: path, Op: "write", Err: err})
		}
	}

	if err := guard.Close(); err != nil {
		return s, r.fail(s, &protocol.TransferIOError{Path: path, Op: "close", Err: err})
	}
	guard.Defuse()
	return s, r.done(s)
}

// WriteROM uploads the image in paths. A single file may carry a copier
// header; several files are sent as consecutive units of one image.
func (r *Runner) WriteROM(ctx context.Context, paths ...string) (*transfer.Session, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no source files")
	}
	family := r.adapter.Family()
	if !r.adapter.Supports(copier.WriteROM) {
		return nil, fmt.Errorf("%s %s: %w", family, copier.WriteROM, protocol.ErrUnsupported)
	}

	s := r.eng.NewSession(string(family), transfer.Write, paths[0], r.port)
	files, err := openAll(paths)
	defer closeAll(files)
	if err != nil {
		return s, r.fail(s, err)
	}

	img, err := r.image(files)
	if err != nil {
		return s, r.fail(s, err)
	}

	r.log.Info("transfer started", "session", s.ID, "family", family, "operation", copier.WriteROM,
		"path", paths[0], "size", img.Size, "hirom", img.HiROM)
	if err := r.adapter.WriteROM(ctx, s, img); err != nil {
		return s, r.fail(s, err)
	}
	return s, r.done(s)
}

// WriteSRAM restores the save RAM from path.
func (r *Runner) WriteSRAM(ctx context.Context, path string) (*transfer.Session, error) {
	family := r.adapter.Family()
	if !r.adapter.Supports(copier.WriteSRAM) {
		return nil, fmt.Errorf("%s %s: %w", family, copier.WriteSRAM, protocol.ErrUnsupported)
	}

	s := r.eng.NewSession(string(family), transfer.Write, path, r.port)
	files, err := openAll([]string{path})
	defer closeAll(files)
	if err != nil {
		return s, r.fail(s, err)
	}

	fi, err := files[0].Stat()
	if err != nil {
		return s, r.fail(s, &protocol.TransferIOError{Path: path, Op: "stat", Err: err})
	}

	r.log.Info("transfer started", "session", s.ID, "family", family, "operation", copier.WriteSRAM, "path", path)
	img := copier.Image{Body: files[0], Size: fi.Size()}
	if err := r.adapter.WriteSRAM(ctx, s, img); err != nil {
		return s, r.fail(s, err)
	}
	return s, r.done(s)
}

// Probe asks the copier about the inserted cartridge. Only copiers that
// can inspect a cartridge without transferring it support this.
func (r *Runner) Probe(ctx context.Context) (copier.ProbeResult, *transfer.Session, error) {
	family := r.adapter.Family()
	p, ok := r.adapter.(copier.Prober)
	if !ok {
		return copier.ProbeResult{}, nil, fmt.Errorf("%s probe: %w", family, protocol.ErrUnsupported)
	}

	s := r.eng.NewSession(string(family), transfer.Read, "", r.port)
	res, err := p.Probe(ctx, s)
	if err != nil {
		return res, s, r.fail(s, err)
	}
	return res, s, r.done(s)
}

// image describes the ROM held in files.
func (r *Runner) image(files []*os.File) (copier.Image, error) {
	gd := r.adapter.Family() == copier.GD3 || r.adapter.Family() == copier.GD6

	if len(files) > 1 {
		if !gd {
			return copier.Image{}, fmt.Errorf("%s copiers take a single image file", r.adapter.Family())
		}
		paths := make([]string, len(files))
		readers := make([]io.Reader, len(files))
		for i, f := range files {
			paths[i] = f.Name()
			readers[i] = f
		}
		plan, err := PlanFiles(paths, protocol.GDUnitLimit, r.namer)
		if err != nil {
			return copier.Image{}, err
		}
		hirom, err := header.DetectHiROM(files[0], plan.Parts[0].Size)
		if err != nil {
			return copier.Image{}, &protocol.TransferIOError{Path: paths[0], Op: "read", Err: err}
		}
		return copier.Image{
			Body:  io.MultiReader(readers...),
			Size:  plan.Size(),
			HiROM: hirom,
			Parts: plan.Units(),
		}, nil
	}

	f := files[0]
	fi, err := f.Stat()
	if err != nil {
		return copier.Image{}, &protocol.TransferIOError{Path: f.Name(), Op: "stat", Err: err}
	}

	var img copier.Image
	var start int64
	size := fi.Size()
	parsed := false
	if header.HasHeader(size) {
		raw := make([]byte, header.Size)
		if _, err := f.ReadAt(raw, 0); err != nil {
			return copier.Image{}, &protocol.TransferIOError{Path: f.Name(), Op: "read", Err: err}
		}
		img.Header = raw
		if h, err := header.Parse(raw); err == nil {
			img.HiROM = h.HiROM
			parsed = true
		} else {
			// an unrecognised header is still skipped
			r.log.Debug("unrecognised header", "path", f.Name(), "error", err)
		}
		start = header.Size
		size -= header.Size
	}
	if size <= 0 {
		return copier.Image{}, &protocol.ProtocolSizeError{Operation: "image " + f.Name(), Size: size, Reason: "empty image"}
	}

	body := io.NewSectionReader(f, start, size)
	if !parsed {
		hirom, err := header.DetectHiROM(body, size)
		if err != nil {
			return copier.Image{}, &protocol.TransferIOError{Path: f.Name(), Op: "read", Err: err}
		}
		img.HiROM = hirom
	}
	img.Body = body
	img.Size = size

	if gd {
		plan, err := Plan(f.Name(), size, protocol.GDUnitLimit, r.namer)
		if err != nil {
			return copier.Image{}, err
		}
		img.Parts = plan.Units()
	}
	return img, nil
}

func (r *Runner) done(s *transfer.Session) error {
	if err := s.Enter(protocol.Done); err != nil {
		s.Fail()
		return err
	}
	r.eng.ReportProgress(s)
	r.log.Info("transfer complete", "session", s.ID, "bytes", s.Done, "retries", s.Retries())
	return nil
}

func (r *Runner) fail(s *transfer.Session, err error) error {
	if !s.Cancelled {
		s.Fail()
	}
	r.log.Error("transfer failed", "session", s.ID, "state", s.State, "error", err)
	return err
}

func openAll(paths []string) ([]*os.File, error) {
	files := make([]*os.File, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return files, &protocol.TransferIOError{Path: path, Op: "open", Err: err}
		}
		files = append(files, f)
	}
	return files, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}
